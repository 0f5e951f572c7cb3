package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Entry is a single known form: a canonical key pointing at its URL
type Entry struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Registry is a read-only mapping of canonical form key to entry.
// It is loaded fresh per resolution call and never written by the
// resolution path.
type Registry struct {
	entries map[string]Entry
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// CanonicalizeKey normalizes a form key into an underscore-joined token form
func CanonicalizeKey(key string) string {
	return strings.Trim(nonAlnumRe.ReplaceAllString(strings.ToLower(key), "_"), "_")
}

// Load reads a forms registry from a JSON file. A missing file yields an
// empty registry; a malformed file is a hard error.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{entries: map[string]Entry{}}, nil
		}
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a registry from raw JSON
func Parse(data []byte) (*Registry, error) {
	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}

	entries := make(map[string]Entry, len(raw))
	for key, entry := range raw {
		entries[CanonicalizeKey(key)] = entry
	}

	return &Registry{entries: entries}, nil
}

// FromMap builds a registry from an in-memory map (used by tests)
func FromMap(m map[string]Entry) *Registry {
	entries := make(map[string]Entry, len(m))
	for key, entry := range m {
		entries[CanonicalizeKey(key)] = entry
	}
	return &Registry{entries: entries}
}

// Get returns the entry for a canonical key
func (r *Registry) Get(key string) (Entry, bool) {
	entry, ok := r.entries[CanonicalizeKey(key)]
	return entry, ok
}

// Keys returns all canonical keys in sorted order for deterministic iteration
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries
func (r *Registry) Len() int {
	return len(r.entries)
}
