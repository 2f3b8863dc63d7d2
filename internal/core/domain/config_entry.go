package domain

import "errors"

var ErrConfigEntryNotFound = errors.New("config entry not found")

// ConfigEntry is the stored configuration of one integration instance.
type ConfigEntry struct {
	EntryId string         `json:"entry_id"`
	Domain  string         `json:"domain"`
	Title   string         `json:"title"`
	Data    map[string]any `json:"data"`
}
