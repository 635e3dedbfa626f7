// Package errs defines the error shapes returned to API clients.
//
// Services return *HTTPError for expected outcomes (not found, forbidden,
// bad input, upstream timeout) so the global error handler can write a
// consistent JSON body; anything else is treated as an internal error.
package errs
