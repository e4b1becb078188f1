// Package device classifies the client that made a request from its
// User-Agent header.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknown = "unknown"

// Info is a coarse, non-identifying description of a client.
type Info struct {
	Platform string // "mobile", "desktop", "bot" or "unknown"
	Browser  string
	OS       string
}

// Classify parses a User-Agent string. Browser versions are dropped.
func Classify(userAgent string) Info {
	if strings.TrimSpace(userAgent) == "" {
		return Info{Platform: unknown, Browser: unknown, OS: unknown}
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	info := Info{
		Platform: "desktop",
		Browser:  normalize(browser),
		OS:       normalize(ua.OS()),
	}
	switch {
	case ua.Bot():
		info.Platform = "bot"
	case ua.Mobile():
		info.Platform = "mobile"
	}
	return info
}

// Label renders info as "browser/os/platform" for logs and audit events.
func (i Info) Label() string {
	return i.Browser + "/" + i.OS + "/" + i.Platform
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return unknown
	}
	return s
}
