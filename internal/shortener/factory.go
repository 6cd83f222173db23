package shortener

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/joshdurbin/shortlink/internal/repository"
)

// NewGenerator creates a new counter-based generator backed by store
func NewGenerator(config Config, store repository.CounterStore, logger *zap.Logger) (Generator, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store required for counter-based generator")
	}

	counters := NewCounterCache(store, config.CounterStep, logger)
	return NewCounterGenerator(counters), nil
}
