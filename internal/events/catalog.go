package events

import (
	"context"
)

// Catalog is a read-only, memoizing view over the event tables. One catalog
// is created per top-level operation: eligibility, scoring and selection may
// look up the same series or instance dozens of times across a member's
// allocation history, and the memo keeps that to one query each.
//
// A Catalog must not outlive the operation that created it.
type Catalog struct {
	repo Store

	seriesCache   map[string]*EventSeries
	instanceCache map[string]*EventInstance
}

// Store is the slice of the repository the catalog reads from
type Store interface {
	GetSeries(ctx context.Context, seriesID string) (*EventSeries, error)
	GetInstance(ctx context.Context, seriesID, eventID string) (*EventInstance, error)
}

func NewCatalog(repo Store) *Catalog {
	return &Catalog{
		repo:          repo,
		seriesCache:   make(map[string]*EventSeries),
		instanceCache: make(map[string]*EventInstance),
	}
}

// Series returns the event series, memoized. Absence surfaces as
// apperr.ErrNotFound, distinct from a store failure, so callers can choose
// to skip-and-continue on historical lookups.
func (c *Catalog) Series(ctx context.Context, seriesID string) (*EventSeries, error) {
	if series, ok := c.seriesCache[seriesID]; ok {
		return series, nil
	}

	series, err := c.repo.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	c.seriesCache[seriesID] = series
	return series, nil
}

// Instance returns the event instance, memoized.
func (c *Catalog) Instance(ctx context.Context, seriesID, eventID string) (*EventInstance, error) {
	combined := seriesID + "/" + eventID
	if instance, ok := c.instanceCache[combined]; ok {
		return instance, nil
	}

	instance, err := c.repo.GetInstance(ctx, seriesID, eventID)
	if err != nil {
		return nil, err
	}

	c.instanceCache[combined] = instance
	return instance, nil
}
