// Package handler is the HTTP entry point for the business logic.
//
// Handlers bind and validate input through the validation package, pass
// the caller's access.RequestContext to the service layer and write the
// result as JSON. Errors are left to the global error handler.
package handler
