package catalog

import "strings"

// assetSegment is the path segment under which the API serves media files.
const assetSegment = "/media/"

// ResolveAssetURL turns a stored file reference into an absolute media URL.
// It is pure and idempotent: a reference that already carries the media
// segment and a scheme is returned untouched, so re-resolving an absolute
// URL is a no-op. Leading/trailing slash duplication is normalized away.
func ResolveAssetURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.Contains(ref, assetSegment) {
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			return ref
		}
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
	}
	return strings.TrimRight(base, "/") + assetSegment + strings.TrimLeft(ref, "/")
}
