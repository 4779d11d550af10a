// Package redis connects to Redis with github.com/redis/go-redis/v9.
//
// Connect retries PING until the server is ready (REDIS_* variables, see
// Config) and Healthcheck exposes the client as a readiness probe. The client
// backs the in-app notification channel.
package redis
