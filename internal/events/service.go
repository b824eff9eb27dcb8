package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gorm.io/datatypes"

	"github.com/kswpuk/portal-api/internal/apperr"
	"github.com/kswpuk/portal-api/internal/auditlog"
)

type Service interface {
	CreateSeries(ctx context.Context, req CreateSeriesRequest, actor, ip string) (*EventSeries, error)
	UpdateSeries(ctx context.Context, seriesID string, req CreateSeriesRequest, actor, ip string) (*EventSeries, error)
	GetSeries(ctx context.Context, seriesID string) (*EventSeries, error)
	ListSeries(ctx context.Context) ([]EventSeries, error)
	DeleteSeries(ctx context.Context, seriesID string, actor, ip string) error

	CreateInstance(ctx context.Context, seriesID string, req CreateInstanceRequest, actor, ip string) (*EventInstance, error)
	UpdateInstance(ctx context.Context, seriesID, eventID string, req CreateInstanceRequest, actor, ip string) (*EventInstance, error)
	GetInstance(ctx context.Context, seriesID, eventID string) (*EventInstance, error)
	ListInstances(ctx context.Context, seriesID string) ([]EventInstance, error)
	ListUpcoming(ctx context.Context) ([]EventInstance, error)
	DeleteInstance(ctx context.Context, seriesID, eventID string, actor, ip string) error

	Repository() Repository
}

type service struct {
	repo  Repository
	audit auditlog.Service
}

func NewService(repo Repository, audit auditlog.Service) Service {
	return &service{repo: repo, audit: audit}
}

// Repository exposes the backing repository so the allocation core can build
// per-operation catalogs over the same tables.
func (s *service) Repository() Repository {
	return s.repo
}

func (s *service) CreateSeries(ctx context.Context, req CreateSeriesRequest, actor, ip string) (*EventSeries, error) {
	if errs := validateSeries(&req); len(errs) > 0 {
		return nil, apperr.Validation(errs...)
	}

	series := &EventSeries{
		EventSeriesID: req.EventSeriesID,
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
	}
	if err := s.repo.CreateSeries(ctx, series); err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, series.EventSeriesID, auditlog.ActionEventCreated, map[string]interface{}{"kind": "series"}, ip)
	log.Printf("✅ Event series %s created", series.EventSeriesID)
	return series, nil
}

func (s *service) UpdateSeries(ctx context.Context, seriesID string, req CreateSeriesRequest, actor, ip string) (*EventSeries, error) {
	req.EventSeriesID = seriesID
	if errs := validateSeries(&req); len(errs) > 0 {
		return nil, apperr.Validation(errs...)
	}

	series := &EventSeries{
		EventSeriesID: req.EventSeriesID,
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
	}
	if err := s.repo.UpdateSeries(ctx, series); err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, seriesID, auditlog.ActionEventUpdated, map[string]interface{}{"kind": "series"}, ip)
	return series, nil
}

func (s *service) GetSeries(ctx context.Context, seriesID string) (*EventSeries, error) {
	return s.repo.GetSeries(ctx, seriesID)
}

func (s *service) ListSeries(ctx context.Context) ([]EventSeries, error) {
	return s.repo.ListSeries(ctx)
}

func (s *service) DeleteSeries(ctx context.Context, seriesID string, actor, ip string) error {
	if err := s.repo.DeleteSeries(ctx, seriesID); err != nil {
		return err
	}
	s.logAudit(ctx, actor, seriesID, auditlog.ActionEventDeleted, map[string]interface{}{"kind": "series"}, ip)
	return nil
}

func (s *service) CreateInstance(ctx context.Context, seriesID string, req CreateInstanceRequest, actor, ip string) (*EventInstance, error) {
	// The series must exist before instances can hang off it
	if _, err := s.repo.GetSeries(ctx, seriesID); err != nil {
		return nil, err
	}

	validated, errs := validateInstance(&req, time.Now())
	if len(errs) > 0 {
		return nil, apperr.Validation(errs...)
	}

	instance, err := buildInstance(seriesID, req, validated)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateInstance(ctx, instance); err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, instance.CombinedEventID(), auditlog.ActionEventCreated, nil, ip)
	log.Printf("✅ Event %s created", instance.CombinedEventID())
	return instance, nil
}

func (s *service) UpdateInstance(ctx context.Context, seriesID, eventID string, req CreateInstanceRequest, actor, ip string) (*EventInstance, error) {
	req.EventID = eventID
	validated, errs := validateInstance(&req, time.Now())
	if len(errs) > 0 {
		return nil, apperr.Validation(errs...)
	}

	instance, err := buildInstance(seriesID, req, validated)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateInstance(ctx, instance); err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, instance.CombinedEventID(), auditlog.ActionEventUpdated, nil, ip)
	return instance, nil
}

func (s *service) GetInstance(ctx context.Context, seriesID, eventID string) (*EventInstance, error) {
	return s.repo.GetInstance(ctx, seriesID, eventID)
}

func (s *service) ListInstances(ctx context.Context, seriesID string) ([]EventInstance, error) {
	return s.repo.ListInstances(ctx, seriesID)
}

func (s *service) ListUpcoming(ctx context.Context) ([]EventInstance, error) {
	return s.repo.ListUpcoming(ctx, time.Now())
}

func (s *service) DeleteInstance(ctx context.Context, seriesID, eventID string, actor, ip string) error {
	if err := s.repo.DeleteInstance(ctx, seriesID, eventID); err != nil {
		return err
	}
	s.logAudit(ctx, actor, seriesID+"/"+eventID, auditlog.ActionEventDeleted, nil, ip)
	return nil
}

func buildInstance(seriesID string, req CreateInstanceRequest, validated *validatedInstance) (*EventInstance, error) {
	attendanceCriteria, err := json.Marshal(req.AttendanceCriteria)
	if err != nil {
		return nil, err
	}
	weightingCriteria, err := json.Marshal(req.WeightingCriteria)
	if err != nil {
		return nil, err
	}

	return &EventInstance{
		EventSeriesID:      seriesID,
		EventID:            req.EventID,
		Details:            req.Details,
		Location:           req.Location,
		LocationType:       req.LocationType,
		Postcode:           req.Postcode,
		RegistrationDate:   validated.RegistrationDate,
		StartDate:          validated.StartDate,
		EndDate:            validated.EndDate,
		EventURL:           req.EventURL,
		Cost:               req.Cost,
		AttendanceLimit:    req.AttendanceLimit,
		AttendanceCriteria: datatypes.JSON(attendanceCriteria),
		WeightingCriteria:  datatypes.JSON(weightingCriteria),
	}, nil
}

func (s *service) logAudit(ctx context.Context, actor, target, action string, details map[string]interface{}, ip string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogAction(ctx, &actor, &target, action, details, ip, "success"); err != nil {
		log.Printf("⚠️ Failed to write audit log for %s: %v", action, err)
	}
}
