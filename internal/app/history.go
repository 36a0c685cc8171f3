package app

import "sync"

// History is the ordered list of answered turns shown in the transcript.
type History struct {
	mu    sync.RWMutex
	turns []*Turn
}

func (h *History) Append(t *Turn) {
	if t == nil {
		return
	}
	h.mu.Lock()
	h.turns = append(h.turns, t)
	h.mu.Unlock()
}

// Turns returns a copy of the history, oldest first.
func (h *History) Turns() []*Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

func (h *History) Clear() {
	h.mu.Lock()
	h.turns = nil
	h.mu.Unlock()
}

// LastWithSQL returns the most recent turn that produced SQL.
func (h *History) LastWithSQL() (*Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := len(h.turns) - 1; i >= 0; i-- {
		if h.turns[i].SQL != "" {
			return h.turns[i], true
		}
	}
	return nil, false
}

// LastResult returns the most recent turn with a tabular result.
func (h *History) LastResult() (*Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := len(h.turns) - 1; i >= 0; i-- {
		if r := h.turns[i].Result; r != nil && len(r.Columns) > 0 {
			return h.turns[i], true
		}
	}
	return nil, false
}
