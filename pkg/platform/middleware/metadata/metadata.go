// Package metadata describes the calling client from its User-Agent so that
// audit and request logs can say "Chrome on macOS" without storing the raw header.
package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"legitify/pkg/requestcontext"
)

// MaxUserAgentLength bounds the header parsed; longer values are described as unknown.
const MaxUserAgentLength = 512

const unknownClient = "unknown"

// Handler stores the client description in the request context.
func Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClient(r.Context(), Describe(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Describe reduces a User-Agent to "Browser on OS". Mobile clients report
// their platform instead of the OS string. Bots keep their name.
func Describe(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" || len(userAgent) > MaxUserAgentLength {
		return unknownClient
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)

	if ua.Bot() {
		if browser == "" {
			return "bot"
		}
		return browser + " (bot)"
	}

	os := strings.TrimSpace(ua.OS())
	if ua.Mobile() {
		if platform := strings.TrimSpace(ua.Platform()); platform != "" {
			os = platform
		}
	}

	switch {
	case browser == "" && os == "":
		return unknownClient
	case os == "":
		return browser
	case browser == "":
		return "client on " + os
	}
	return browser + " on " + os
}
