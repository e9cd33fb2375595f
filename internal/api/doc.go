// Package api handles incoming HTTP requests, request validation and
// response formatting. It adapts HTTP to the book and user services and
// translates their errors into status codes and client-safe messages.
package api
