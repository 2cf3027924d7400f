package filterstate

import (
	"sync"

	querycodec "findmysecurity/internal/listing/query-codec"
)

// History is an in-memory browser history for one page path. It implements
// Navigator and supports back/forward.
type History struct {
	mu      sync.Mutex
	path    string
	entries []string
	index   int
	pushes  int
}

// NewHistory starts with a single entry for the initial query.
func NewHistory(path, initialQuery string) *History {
	return &History{path: path, entries: []string{initialQuery}}
}

// Push drops any forward entries and appends query.
func (h *History) Push(query string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], query)
	h.index++
	h.pushes++
}

// Back moves one entry back and returns its query.
func (h *History) Back() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return "", false
	}
	h.index--
	return h.entries[h.index], true
}

func (h *History) Forward() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return "", false
	}
	h.index++
	return h.entries[h.index], true
}

// Current returns the query of the current entry.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Location returns the current entry as a path with query string.
func (h *History) Location() string {
	return querycodec.Location(h.path, h.Current())
}

// Pushes returns the number of navigations recorded since creation.
func (h *History) Pushes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pushes
}
