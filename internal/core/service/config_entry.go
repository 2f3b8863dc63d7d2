package service

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/berfenger/hassbridge/internal/core/domain"

	"github.com/google/uuid"
)

// ConfigEntryRegistry keeps the config entries of the running integrations.
type ConfigEntryRegistry struct {
	mu      sync.RWMutex
	entries map[string]domain.ConfigEntry
}

func NewConfigEntryRegistry() *ConfigEntryRegistry {
	return &ConfigEntryRegistry{
		entries: map[string]domain.ConfigEntry{},
	}
}

// Add stores the entry and returns its id. An empty EntryId gets a random one.
func (r *ConfigEntryRegistry) Add(entry domain.ConfigEntry) (string, error) {
	if entry.EntryId == "" {
		entry.EntryId = uuid.NewString()
	}
	entry.Data = maps.Clone(entry.Data)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.EntryId]; exists {
		return "", fmt.Errorf("config entry %s already registered", entry.EntryId)
	}
	r.entries[entry.EntryId] = entry
	return entry.EntryId, nil
}

// Get returns the stored entry. Data is shared with the registry and must
// not be modified by the caller.
func (r *ConfigEntryRegistry) Get(entryId string) (domain.ConfigEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[entryId]
	if !ok {
		return domain.ConfigEntry{}, fmt.Errorf("%w: %s", domain.ErrConfigEntryNotFound, entryId)
	}
	return entry, nil
}

func (r *ConfigEntryRegistry) List() []domain.ConfigEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]domain.ConfigEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Domain != entries[j].Domain {
			return entries[i].Domain < entries[j].Domain
		}
		return entries[i].EntryId < entries[j].EntryId
	})
	return entries
}
