package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/model"
	"github.com/mohitkumar/flowcall/persistence"
	"go.uber.org/zap"
)

const DEFAULT_MAX_ENTRIES = 100

// History keeps the most recent calls first and evicts the oldest once max is reached.
type History struct {
	mu      sync.RWMutex
	entries []model.HistoryEntry
	max     int
	storage persistence.Storage
}

func New(storage persistence.Storage, max int) *History {
	if max <= 0 {
		max = DEFAULT_MAX_ENTRIES
	}
	h := &History{
		max:     max,
		storage: storage,
	}
	h.load()
	return h
}

func (h *History) load() {
	if h.storage == nil {
		return
	}
	var persisted []model.HistoryEntry
	found, err := h.storage.Get(persistence.HISTORY_KEY, &persisted)
	if err != nil {
		logger.Error("error loading history", zap.Error(err))
		return
	}
	if !found {
		return
	}
	if len(persisted) > h.max {
		persisted = persisted[:h.max]
	}
	h.entries = persisted
}

func (h *History) save() {
	if h.storage == nil {
		return
	}
	if err := h.storage.Set(persistence.HISTORY_KEY, h.entries); err != nil {
		logger.Error("error saving history", zap.Error(err))
	}
}

// Add records entry at the head. Missing id and timestamp are filled in.
func (h *History) Add(entry model.HistoryEntry) model.HistoryEntry {
	if entry.Id == "" {
		entry.Id = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Success = model.IsSuccessStatus(entry.Status)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append([]model.HistoryEntry{entry}, h.entries...)
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
	h.save()
	return entry
}

func (h *History) List() []model.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Get(id string) (model.HistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.entries {
		if e.Id == id {
			return e, true
		}
	}
	return model.HistoryEntry{}, false
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *History) Max() int {
	return h.max
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	if h.storage == nil {
		return
	}
	if err := h.storage.Remove(persistence.HISTORY_KEY); err != nil {
		logger.Error("error clearing history", zap.Error(err))
	}
}
