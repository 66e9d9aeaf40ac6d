package testutil

import (
	"net/http"
	"time"

	id "immo/pkg/domain"
	"immo/pkg/requestcontext"
)

// WithActor adds the authenticated actor to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithActor(req *http.Request, actor id.Actor) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// AsActorAt combines WithActor and WithTime, and sets client metadata so
// signature logs have an origin.
func AsActorAt(req *http.Request, actor id.Actor, t time.Time) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), actor)
	ctx = requestcontext.WithTime(ctx, t)
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", req.Header.Get("User-Agent"))
	return req.WithContext(ctx)
}
