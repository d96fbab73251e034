package studyai

import (
	"strconv"
	"strings"
	"sync"
)

// ClientKeyVars are the environment variables a client reads keys from, in
// priority order.
var ClientKeyVars = numbered("GEMINI_API_KEY", 5)

// ServerKeyVars are the environment variables the backend proxy reads its
// own keys from, in priority order.
var ServerKeyVars = numbered("AI_SERVER_API_KEY", 5)

// numbered returns base, base_2 ... base_n.
func numbered(base string, n int) []string {
	out := []string{base}
	for i := 2; i <= n; i++ {
		out = append(out, base+"_"+strconv.Itoa(i))
	}
	return out
}

// CollectKeys looks each name up with getenv and returns the non-empty
// values in order.
func CollectKeys(getenv func(string) string, names ...string) []string {
	var keys []string
	for _, name := range names {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			keys = append(keys, v)
		}
	}
	return keys
}

// KeyRing is an immutable, deduplicated list of API keys with a rotation
// cursor. Next hands them out in strict round-robin order.
type KeyRing struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewKeyRing drops blank and duplicate keys, keeping first-seen order.
func NewKeyRing(keys ...string) *KeyRing {
	seen := make(map[string]struct{}, len(keys))
	ring := &KeyRing{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		ring.keys = append(ring.keys, k)
	}
	return ring
}

// Len returns the number of keys.
func (r *KeyRing) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Next returns the key under the cursor and advances it. A ring of one key
// never moves its cursor. ok is false for an empty ring.
func (r *KeyRing) Next() (key string, ok bool) {
	if r.Len() == 0 {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key = r.keys[r.cursor]
	if len(r.keys) > 1 {
		r.cursor = (r.cursor + 1) % len(r.keys)
	}
	return key, true
}

// Cursor returns the index Next will use.
func (r *KeyRing) Cursor() int {
	if r.Len() == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}
