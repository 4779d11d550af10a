// Package ratelimiter limits requests per key with fixed windows.
//
// RedisStore shares counters across replicas; MemoryStore is for single
// processes and tests. Middleware sets the X-RateLimit-* headers and
// Retry-After on rejection.
package ratelimiter
