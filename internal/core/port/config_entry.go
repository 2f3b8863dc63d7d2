package port

import "github.com/berfenger/hassbridge/internal/core/domain"

type ConfigEntryStore interface {
	Get(entryId string) (domain.ConfigEntry, error)
	List() []domain.ConfigEntry
}
