package middleware

import (
	"context"
)

// Authorizer rejects a message before any unit of work is opened.
type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	cmd, _ := both(a.Authorize)
	return cmd
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	_, query := both(a.Authorize)
	return query
}
