// Package api handles incoming HTTP requests, request validation and
// response formatting. It adapts HTTP to the subscriber domain: handlers
// decode and validate input, hand a domain.Subscriber to the store, and map
// the outcome to a status code without leaking internal error details.
package api
