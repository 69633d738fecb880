// Package connect drives the social-account OAuth callback flows.
//
// Providers redirect back to /connect/callback/<path>; the path maps to
// a platform provider identifier via a static table. Unmapped paths are
// a client-side error and are never forwarded to the platform.
package connect

import "strings"

var providerByPath = map[string]string{
	"tiktok/profile":    "tiktok",
	"youtube/channel":   "google",
	"facebook/profile":  "meta",
	"facebook/page":     "meta",
	"instagram/profile": "meta",
}

// ProviderForPath resolves a callback path (e.g. "tiktok/profile") to
// the platform provider identifier.
func ProviderForPath(path string) (string, bool) {
	p, ok := providerByPath[strings.Trim(path, "/")]
	return p, ok
}
