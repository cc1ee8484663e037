package modelcache

import "strings"

// Key identifies a cached record: an opaque model key plus an optional
// submodel tag. Canonical form is "model_key" or "model_key:tag".
type Key struct {
	ModelKey string
	Tag      string
}

// NewKey builds the canonical key for a model and optional submodel tag.
// An empty tag yields a key that stringifies as the bare model key.
func NewKey(modelKey, tag string) Key {
	return Key{ModelKey: modelKey, Tag: tag}
}

// ParseKey parses a key previously produced by Key.String.
func ParseKey(s string) Key {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return Key{ModelKey: s[:i], Tag: s[i+1:]}
	}
	return Key{ModelKey: s}
}

// String returns the canonical form used for equality and logging.
func (k Key) String() string {
	if k.Tag == "" {
		return k.ModelKey
	}
	return k.ModelKey + ":" + k.Tag
}
