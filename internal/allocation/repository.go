package allocation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kswpuk/portal-api/internal/apperr"
)

type Repository interface {
	Get(ctx context.Context, combinedEventID, membershipNumber string) (*Allocation, error)
	ListByEvent(ctx context.Context, combinedEventID string) ([]Allocation, error)
	ListByMember(ctx context.Context, membershipNumber string) ([]Allocation, error)
	CreateRegistered(ctx context.Context, combinedEventID, membershipNumber string) (*Allocation, error)
	DeleteRegistered(ctx context.Context, combinedEventID, membershipNumber string) error
	Upsert(ctx context.Context, combinedEventID, membershipNumber, state string) (*Allocation, error)
	Delete(ctx context.Context, combinedEventID, membershipNumber string) error
	EventRecordCounts(ctx context.Context, membershipNumber string, since time.Time) (attended, noShows, dropOuts int, err error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, combinedEventID, membershipNumber string) (*Allocation, error) {
	var a Allocation
	err := r.db.WithContext(ctx).
		Where("combined_event_id = ? AND membership_number = ?", combinedEventID, membershipNumber).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("no allocation for %s on %s", membershipNumber, combinedEventID)
		}
		return nil, apperr.Collaborator("allocation lookup", err)
	}
	return &a, nil
}

func (r *repository) ListByEvent(ctx context.Context, combinedEventID string) ([]Allocation, error) {
	var allocations []Allocation
	err := r.db.WithContext(ctx).
		Where("combined_event_id = ?", combinedEventID).
		Order("membership_number").
		Find(&allocations).Error
	if err != nil {
		return nil, apperr.Collaborator("allocation query", err)
	}
	return allocations, nil
}

func (r *repository) ListByMember(ctx context.Context, membershipNumber string) ([]Allocation, error) {
	var allocations []Allocation
	err := r.db.WithContext(ctx).
		Where("membership_number = ?", membershipNumber).
		Order("combined_event_id").
		Find(&allocations).Error
	if err != nil {
		return nil, apperr.Collaborator("allocation query", err)
	}
	return allocations, nil
}

// CreateRegistered inserts a REGISTERED record only if no record exists for
// the pair. The conditional insert is the compare-and-swap that stops two
// concurrent registrations from the same member double-creating.
func (r *repository) CreateRegistered(ctx context.Context, combinedEventID, membershipNumber string) (*Allocation, error) {
	a := &Allocation{
		CombinedEventID:  combinedEventID,
		MembershipNumber: membershipNumber,
		Allocation:       StateRegistered,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(a)
	if res.Error != nil {
		return nil, apperr.Collaborator("allocation write", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflictf("allocation for %s on %s already exists", membershipNumber, combinedEventID)
	}
	return a, nil
}

// DeleteRegistered removes a record only while it is still REGISTERED, so a
// concurrent administrative allocation cannot be silently unregistered.
func (r *repository) DeleteRegistered(ctx context.Context, combinedEventID, membershipNumber string) error {
	res := r.db.WithContext(ctx).
		Where("combined_event_id = ? AND membership_number = ? AND allocation = ?",
			combinedEventID, membershipNumber, StateRegistered).
		Delete(&Allocation{})
	if res.Error != nil {
		return apperr.Collaborator("allocation delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflictf("allocation for %s on %s is no longer REGISTERED", membershipNumber, combinedEventID)
	}
	return nil
}

// Upsert writes a state unconditionally. Administrative overrides do not
// re-check the previous state.
func (r *repository) Upsert(ctx context.Context, combinedEventID, membershipNumber, state string) (*Allocation, error) {
	a := &Allocation{
		CombinedEventID:  combinedEventID,
		MembershipNumber: membershipNumber,
		Allocation:       state,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "combined_event_id"}, {Name: "membership_number"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"allocation": state, "updated_at": gorm.Expr("NOW()")}),
		}).
		Create(a)
	if res.Error != nil {
		return nil, apperr.Collaborator("allocation write", res.Error)
	}
	return a, nil
}

func (r *repository) Delete(ctx context.Context, combinedEventID, membershipNumber string) error {
	res := r.db.WithContext(ctx).
		Where("combined_event_id = ? AND membership_number = ?", combinedEventID, membershipNumber).
		Delete(&Allocation{})
	if res.Error != nil {
		return apperr.Collaborator("allocation delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("no allocation for %s on %s", membershipNumber, combinedEventID)
	}
	return nil
}

// EventRecordCounts totals a member's attendance record against proper
// events (social and no-impact series excluded) since the given date. Used
// by the good service award screen.
func (r *repository) EventRecordCounts(ctx context.Context, membershipNumber string, since time.Time) (attended, noShows, dropOuts int, err error) {
	type counts struct {
		Attended int
		NoShows  int
		DropOuts int
	}
	var c counts

	err = r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) FILTER (WHERE a.allocation = 'ATTENDED')    AS attended,
			COUNT(*) FILTER (WHERE a.allocation = 'NO_SHOW')     AS no_shows,
			COUNT(*) FILTER (WHERE a.allocation = 'DROPPED_OUT') AS drop_outs
		FROM event_allocations a
		JOIN event_instances i
			ON a.combined_event_id = i.event_series_id || '/' || i.event_id
		JOIN event_series s
			ON s.event_series_id = i.event_series_id
		WHERE a.membership_number = ?
			AND s.type = 'event'
			AND i.start_date >= ?`,
		membershipNumber, since,
	).Scan(&c).Error
	if err != nil {
		return 0, 0, 0, apperr.Collaborator("event record query", err)
	}
	return c.Attended, c.NoShows, c.DropOuts, nil
}
