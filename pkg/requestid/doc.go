// Package requestid tags every HTTP request with an ID that is echoed in the
// X-Request-ID response header, stored in the request context and added to
// log records through LoggerExtractor.
package requestid
