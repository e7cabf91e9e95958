package render

import "strings"

// ImageResolver turns stored image keys into URLs the browser can load.
type ImageResolver struct {
	base string
}

// NewImageResolver creates a resolver rooted at base.
func NewImageResolver(base string) ImageResolver {
	return ImageResolver{base: strings.TrimRight(base, "/")}
}

// URL returns base + "/" + key. Empty keys resolve to "", and keys that are
// already absolute URLs are returned unchanged.
func (r ImageResolver) URL(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	return r.base + "/" + strings.TrimLeft(key, "/")
}
