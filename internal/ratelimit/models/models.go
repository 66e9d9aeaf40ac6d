// Package models holds the request rate limiting vocabulary shared by the
// limiter, its stores and the HTTP middleware.
package models

import "time"

// Class groups endpoints that share a limit.
type Class string

const (
	ClassRead      Class = "read"
	ClassWrite     Class = "write"
	ClassSignature Class = "signature"
)

type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// IPKey and UserKey namespace the bucket of one subject within one class.
func IPKey(ip string, class Class) string {
	return "ip:" + string(class) + ":" + ip
}

func UserKey(userID string, class Class) string {
	return "user:" + string(class) + ":" + userID
}
