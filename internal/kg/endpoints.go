package kg

import (
	"regexp"
	"strings"
)

var (
	appRouterRe   = regexp.MustCompile(`(?:^|/)app/api/(.+)/route\.tsx?$`)
	pagesRouterRe = regexp.MustCompile(`(?:^|/)pages/api/(.+)\.tsx?$`)
)

// extractEndpointRoute derives a web-framework route string from a file
// path, recognizing Next.js's App Router (app/api/**/route.ts) and Pages
// Router (pages/api/**.ts) conventions. Returns "" if path is not a route
// file.
func extractEndpointRoute(path string) string {
	if m := appRouterRe.FindStringSubmatch(path); m != nil {
		return "/" + m[1]
	}
	if m := pagesRouterRe.FindStringSubmatch(path); m != nil {
		segment := strings.TrimSuffix(m[1], "/index")
		return "/" + segment
	}
	return ""
}
