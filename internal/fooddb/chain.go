package fooddb

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Chain tries each searcher in order and returns the first non-empty result.
type Chain struct {
	searchers []Searcher
	logger    *zap.Logger
}

// NewChain builds a fallback chain. Nil searchers are skipped.
func NewChain(logger *zap.Logger, searchers ...Searcher) *Chain {
	c := &Chain{logger: logger}
	for _, s := range searchers {
		if s != nil {
			c.searchers = append(c.searchers, s)
		}
	}
	return c
}

// Search implements Searcher. An error is returned only when every searcher
// failed; a mix of failures and empty results yields no entries and no error.
func (c *Chain) Search(ctx context.Context, query string) ([]Entry, error) {
	var errs []error
	for i, s := range c.searchers {
		entries, err := s.Search(ctx, query)
		if err != nil {
			c.logger.Warn("food search failed, trying next source",
				zap.Int("source", i),
				zap.String("query", query),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		if len(entries) > 0 {
			return entries, nil
		}
	}
	if len(errs) > 0 && len(errs) == len(c.searchers) {
		return nil, fmt.Errorf("all food sources failed: %w", errors.Join(errs...))
	}
	return nil, nil
}
