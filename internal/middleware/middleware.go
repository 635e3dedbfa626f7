// Package middleware holds the echo middleware shared by all routes:
// Clerk authentication, request ids, the request-scoped logger, New
// Relic tracing, request logging, rate limiting and the global error
// handler.
package middleware
