package testutil

import (
	"net/http"

	"medgate/internal/auth/models"
	"medgate/internal/platform/middleware"
)

// WithSession attaches a session to the request context, as the auth
// middleware would for an authenticated request.
func WithSession(req *http.Request, session *models.Session) *http.Request {
	return req.WithContext(middleware.WithSession(req.Context(), session))
}

// WithBearer sets the Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
