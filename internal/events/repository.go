package events

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kswpuk/portal-api/internal/apperr"
)

type Repository interface {
	CreateSeries(ctx context.Context, series *EventSeries) error
	UpdateSeries(ctx context.Context, series *EventSeries) error
	GetSeries(ctx context.Context, seriesID string) (*EventSeries, error)
	ListSeries(ctx context.Context) ([]EventSeries, error)
	DeleteSeries(ctx context.Context, seriesID string) error

	CreateInstance(ctx context.Context, instance *EventInstance) error
	UpdateInstance(ctx context.Context, instance *EventInstance) error
	GetInstance(ctx context.Context, seriesID, eventID string) (*EventInstance, error)
	ListInstances(ctx context.Context, seriesID string) ([]EventInstance, error)
	ListUpcoming(ctx context.Context, from time.Time) ([]EventInstance, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]EventInstance, error)
	DeleteInstance(ctx context.Context, seriesID, eventID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateSeries(ctx context.Context, series *EventSeries) error {
	err := r.db.WithContext(ctx).Create(series).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflictf("event series %s already exists", series.EventSeriesID)
	}
	return err
}

func (r *repository) UpdateSeries(ctx context.Context, series *EventSeries) error {
	res := r.db.WithContext(ctx).
		Model(&EventSeries{}).
		Where("event_series_id = ?", series.EventSeriesID).
		Updates(map[string]interface{}{
			"name":        series.Name,
			"description": series.Description,
			"type":        series.Type,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("event series %s not found", series.EventSeriesID)
	}
	return nil
}

func (r *repository) GetSeries(ctx context.Context, seriesID string) (*EventSeries, error) {
	var series EventSeries
	err := r.db.WithContext(ctx).
		Where("event_series_id = ?", seriesID).
		First(&series).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("event series %s not found", seriesID)
		}
		return nil, apperr.Collaborator("event series lookup", err)
	}
	return &series, nil
}

func (r *repository) ListSeries(ctx context.Context) ([]EventSeries, error) {
	var series []EventSeries
	err := r.db.WithContext(ctx).Order("event_series_id").Find(&series).Error
	return series, err
}

// DeleteSeries removes a series, its instances and their allocations.
func (r *repository) DeleteSeries(ctx context.Context, seriesID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM event_allocations WHERE combined_event_id LIKE ?", seriesID+"/%",
		).Error; err != nil {
			return err
		}
		if err := tx.Where("event_series_id = ?", seriesID).Delete(&EventInstance{}).Error; err != nil {
			return err
		}

		res := tx.Where("event_series_id = ?", seriesID).Delete(&EventSeries{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("event series %s not found", seriesID)
		}
		return nil
	})
}

func (r *repository) CreateInstance(ctx context.Context, instance *EventInstance) error {
	err := r.db.WithContext(ctx).Create(instance).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflictf("event %s already exists", instance.CombinedEventID())
	}
	return err
}

func (r *repository) UpdateInstance(ctx context.Context, instance *EventInstance) error {
	res := r.db.WithContext(ctx).
		Model(&EventInstance{}).
		Where("event_series_id = ? AND event_id = ?", instance.EventSeriesID, instance.EventID).
		Updates(map[string]interface{}{
			"details":             instance.Details,
			"location":            instance.Location,
			"location_type":       instance.LocationType,
			"postcode":            instance.Postcode,
			"registration_date":   instance.RegistrationDate,
			"start_date":          instance.StartDate,
			"end_date":            instance.EndDate,
			"event_url":           instance.EventURL,
			"cost":                instance.Cost,
			"attendance_limit":    instance.AttendanceLimit,
			"attendance_criteria": instance.AttendanceCriteria,
			"weighting_criteria":  instance.WeightingCriteria,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("event %s not found", instance.CombinedEventID())
	}
	return nil
}

func (r *repository) GetInstance(ctx context.Context, seriesID, eventID string) (*EventInstance, error) {
	var instance EventInstance
	err := r.db.WithContext(ctx).
		Where("event_series_id = ? AND event_id = ?", seriesID, eventID).
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("event %s/%s not found", seriesID, eventID)
		}
		return nil, apperr.Collaborator("event instance lookup", err)
	}
	return &instance, nil
}

func (r *repository) ListInstances(ctx context.Context, seriesID string) ([]EventInstance, error) {
	var instances []EventInstance
	err := r.db.WithContext(ctx).
		Where("event_series_id = ?", seriesID).
		Order("start_date").
		Find(&instances).Error
	return instances, err
}

func (r *repository) ListUpcoming(ctx context.Context, from time.Time) ([]EventInstance, error) {
	var instances []EventInstance
	err := r.db.WithContext(ctx).
		Where("start_date >= ?", from).
		Order("start_date").
		Find(&instances).Error
	return instances, err
}

func (r *repository) ListBetween(ctx context.Context, from, to time.Time) ([]EventInstance, error) {
	var instances []EventInstance
	err := r.db.WithContext(ctx).
		Where("start_date >= ? AND start_date < ?", from, to).
		Order("start_date").
		Find(&instances).Error
	return instances, err
}

// DeleteInstance removes an instance and its allocations.
func (r *repository) DeleteInstance(ctx context.Context, seriesID, eventID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM event_allocations WHERE combined_event_id = ?", seriesID+"/"+eventID,
		).Error; err != nil {
			return err
		}

		res := tx.Where("event_series_id = ? AND event_id = ?", seriesID, eventID).Delete(&EventInstance{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("event %s/%s not found", seriesID, eventID)
		}
		return nil
	})
}
