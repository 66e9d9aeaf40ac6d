// Package device turns client User-Agent strings into short device
// descriptions recorded in signature logs.
package device

import (
	"net/http"

	"github.com/mssola/useragent"

	"immo/pkg/requestcontext"
)

// Describe condenses a User-Agent into "browser version / os", with a
// "(mobile)" suffix for mobile clients. An empty User-Agent yields "".
func Describe(ua string) string {
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	device := name
	if version != "" {
		device += " " + version
	}
	if osName := parsed.OS(); osName != "" {
		device += " / " + osName
	}
	if parsed.Mobile() {
		device += " (mobile)"
	}
	return device
}

// Middleware records the described device of the caller in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDevice(r.Context(), Describe(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
