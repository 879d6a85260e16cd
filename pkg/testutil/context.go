package testutil

import (
	"net/http"
	"time"

	"carreg/pkg/requestcontext"
)

// WithActor attaches the actor the auth middleware would resolve from a token.
func WithActor(req *http.Request, actor string) *http.Request {
	if actor == "" {
		return req
	}
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithRequestTime pins the request time seen by handlers and services.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithBearer sets the Authorization header the auth middleware reads.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
