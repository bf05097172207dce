package geometry

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ResourceKey maps a raw edge id to a string usable in SVG id attributes and
// url(#...) references. Characters outside [A-Za-z0-9_-] become '_'; when
// that changes the id, a hash of the raw id is appended so distinct raw ids
// such as "a:b" and "a/b" keep distinct keys.
func ResourceKey(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 9)
	changed := raw == ""
	for _, r := range raw {
		if isIDRune(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
		changed = true
	}
	if changed {
		fmt.Fprintf(&b, "-%08x", uint32(xxhash.Sum64String(raw)))
	}
	return b.String()
}

func isIDRune(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// idAllocator hands out unique keys within one Resolve call. A repeated key
// gets a numeric suffix.
type idAllocator struct {
	used map[string]bool
}

func newIDAllocator() *idAllocator {
	return &idAllocator{used: make(map[string]bool)}
}

func (a *idAllocator) next(key string) string {
	if !a.used[key] {
		a.used[key] = true
		return key
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s__%d", key, i)
		if !a.used[candidate] {
			a.used[candidate] = true
			return candidate
		}
	}
}
