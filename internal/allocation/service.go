package allocation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kswpuk/portal-api/internal/apperr"
	"github.com/kswpuk/portal-api/internal/auditlog"
	"github.com/kswpuk/portal-api/internal/eligibility"
	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/member"
	"github.com/kswpuk/portal-api/internal/weighting"
)

// Dispatcher fans an allocation change out to the member. Dispatch is
// best-effort: failures are logged by the implementation and never roll back
// the state change that triggered them.
type Dispatcher interface {
	Dispatch(ctx context.Context, membershipNumber, combinedEventID, newState string)
}

type Service interface {
	Register(ctx context.Context, seriesID, eventID, membershipNumber, ip string) (*RegisterResult, error)
	Eligibility(ctx context.Context, seriesID, eventID, membershipNumber string) (*eligibility.Result, error)
	ListByEvent(ctx context.Context, seriesID, eventID string) ([]Allocation, error)
	MemberAllocations(ctx context.Context, membershipNumber string) ([]MemberAllocation, error)
	SetAllocations(ctx context.Context, seriesID, eventID string, req SetAllocationsRequest, actor, ip string) (*SetAllocationsResult, error)
	SetAllocation(ctx context.Context, seriesID, eventID, membershipNumber, state, actor, ip string) (*Allocation, error)
	DeleteAllocation(ctx context.Context, seriesID, eventID, membershipNumber, actor, ip string) error
	Suggest(ctx context.Context, seriesID, eventID string, limitOverride *int, actor, ip string) ([]string, error)

	// EventRecords implements member.AllocationHistory for the award screen
	EventRecords(ctx context.Context, membershipNumber string, since time.Time) (attended, noShows, dropOuts int, err error)
}

type service struct {
	repo       Repository
	members    member.Lookup
	eventsRepo events.Store
	selector   *Selector
	dispatcher Dispatcher
	audit      auditlog.Service
}

func NewService(repo Repository, members member.Lookup, eventsRepo events.Store, selector *Selector, dispatcher Dispatcher, audit auditlog.Service) Service {
	return &service{
		repo:       repo,
		members:    members,
		eventsRepo: eventsRepo,
		selector:   selector,
		dispatcher: dispatcher,
		audit:      audit,
	}
}

// Register toggles a member's self-registration for an event. A REGISTERED
// record is deleted; no record creates one, after checking the deadline and
// the eligibility criteria. Any administrative state rejects the attempt.
func (s *service) Register(ctx context.Context, seriesID, eventID, membershipNumber, ip string) (*RegisterResult, error) {
	combinedID := seriesID + "/" + eventID

	// Primary reads are fatal on failure, including absence
	instance, err := s.eventsRepo.GetInstance(ctx, seriesID, eventID)
	if err != nil {
		return nil, err
	}

	if !instance.RegistrationOpen(time.Now()) {
		return nil, ErrRegistrationClosed
	}

	currentState := StateUnregistered
	current, err := s.repo.Get(ctx, combinedID, membershipNumber)
	if err == nil {
		currentState = current.Allocation
	} else if !isNotFound(err) {
		return nil, err
	}

	switch currentState {
	case StateRegistered:
		if err := s.repo.DeleteRegistered(ctx, combinedID, membershipNumber); err != nil {
			return nil, err
		}

		s.logAudit(ctx, membershipNumber, combinedID, auditlog.ActionAllocationRegister,
			map[string]interface{}{"allocation": StateUnregistered}, ip)
		log.Printf("%s unregistered from event %s", membershipNumber, combinedID)
		return &RegisterResult{
			CombinedEventID:  combinedID,
			MembershipNumber: membershipNumber,
			Allocation:       StateUnregistered,
		}, nil

	case StateUnregistered:
		m, err := s.members.GetByMembershipNumber(ctx, membershipNumber)
		if err != nil {
			return nil, err
		}

		result := eligibility.Evaluate(m, instance, time.Now())
		if !result.Eligible {
			return nil, ErrNotEligible
		}

		if _, err := s.repo.CreateRegistered(ctx, combinedID, membershipNumber); err != nil {
			return nil, err
		}

		s.logAudit(ctx, membershipNumber, combinedID, auditlog.ActionAllocationRegister,
			map[string]interface{}{"allocation": StateRegistered}, ip)
		log.Printf("%s registered for event %s", membershipNumber, combinedID)
		return &RegisterResult{
			CombinedEventID:  combinedID,
			MembershipNumber: membershipNumber,
			Allocation:       StateRegistered,
		}, nil

	default:
		return nil, fmt.Errorf("%w (current status %s)", ErrInvalidTransition, currentState)
	}
}

// Eligibility runs a dry evaluation for display, without registering.
func (s *service) Eligibility(ctx context.Context, seriesID, eventID, membershipNumber string) (*eligibility.Result, error) {
	instance, err := s.eventsRepo.GetInstance(ctx, seriesID, eventID)
	if err != nil {
		return nil, err
	}

	m, err := s.members.GetByMembershipNumber(ctx, membershipNumber)
	if err != nil {
		return nil, err
	}

	result := eligibility.Evaluate(m, instance, time.Now())
	return &result, nil
}

func (s *service) ListByEvent(ctx context.Context, seriesID, eventID string) ([]Allocation, error) {
	return s.repo.ListByEvent(ctx, seriesID+"/"+eventID)
}

// MemberAllocations lists a member's allocations joined with event details.
// Events that no longer resolve are returned bare rather than dropped.
func (s *service) MemberAllocations(ctx context.Context, membershipNumber string) ([]MemberAllocation, error) {
	allocations, err := s.repo.ListByMember(ctx, membershipNumber)
	if err != nil {
		return nil, err
	}

	catalog := events.NewCatalog(s.eventsRepo)

	results := make([]MemberAllocation, 0, len(allocations))
	for _, a := range allocations {
		result := MemberAllocation{
			CombinedEventID: a.CombinedEventID,
			Allocation:      a.Allocation,
		}

		if seriesID, eventID, ok := splitCombinedID(a.CombinedEventID); ok {
			if instance, err := catalog.Instance(ctx, seriesID, eventID); err == nil {
				result.StartDate = instance.StartDate
				result.EndDate = instance.EndDate
			}
			if series, err := catalog.Series(ctx, seriesID); err == nil {
				result.SeriesName = series.Name
			}
		}

		results = append(results, result)
	}
	return results, nil
}

// SetAllocations applies a bulk administrative write. Each member's write is
// independent: one failure is retried once, then logged and skipped, and the
// batch continues.
func (s *service) SetAllocations(ctx context.Context, seriesID, eventID string, req SetAllocationsRequest, actor, ip string) (*SetAllocationsResult, error) {
	combinedID := seriesID + "/" + eventID

	if _, err := s.eventsRepo.GetInstance(ctx, seriesID, eventID); err != nil {
		return nil, err
	}

	result := &SetAllocationsResult{}
	for _, group := range req.Allocations {
		if !validStates[group.Allocation] {
			log.Printf("⚠️ Skipping unsupported allocation state %q for event %s", group.Allocation, combinedID)
			result.Failed = append(result.Failed, group.MembershipNumbers...)
			continue
		}

		for _, membershipNumber := range group.MembershipNumbers {
			if err := s.writeAllocation(ctx, combinedID, membershipNumber, group.Allocation); err != nil {
				log.Printf("❌ Unable to set allocation to %s for %s on event %s: %v",
					group.Allocation, membershipNumber, combinedID, err)
				result.Failed = append(result.Failed, membershipNumber)
				continue
			}

			result.Updated++
			log.Printf("Set allocation to %s for %s on event %s", group.Allocation, membershipNumber, combinedID)

			if Notifies(group.Allocation) && s.dispatcher != nil {
				s.dispatcher.Dispatch(ctx, membershipNumber, combinedID, group.Allocation)
			}
		}
	}

	s.logAudit(ctx, actor, combinedID, auditlog.ActionAllocationSet,
		map[string]interface{}{"updated": result.Updated, "failed": len(result.Failed)}, ip)
	return result, nil
}

// writeAllocation upserts with a single retry on transient failure
func (s *service) writeAllocation(ctx context.Context, combinedID, membershipNumber, state string) error {
	_, err := s.repo.Upsert(ctx, combinedID, membershipNumber, state)
	if err == nil {
		return nil
	}

	_, err = s.repo.Upsert(ctx, combinedID, membershipNumber, state)
	return err
}

// SetAllocation applies a single administrative write
func (s *service) SetAllocation(ctx context.Context, seriesID, eventID, membershipNumber, state, actor, ip string) (*Allocation, error) {
	if !validStates[state] {
		return nil, apperr.Validation(fmt.Sprintf("Allocation %s not a supported value", state))
	}

	combinedID := seriesID + "/" + eventID
	if _, err := s.eventsRepo.GetInstance(ctx, seriesID, eventID); err != nil {
		return nil, err
	}

	a, err := s.repo.Upsert(ctx, combinedID, membershipNumber, state)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, combinedID, auditlog.ActionAllocationSet,
		map[string]interface{}{"membershipNumber": membershipNumber, "allocation": state}, ip)

	if Notifies(state) && s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, membershipNumber, combinedID, state)
	}
	return a, nil
}

func (s *service) DeleteAllocation(ctx context.Context, seriesID, eventID, membershipNumber, actor, ip string) error {
	combinedID := seriesID + "/" + eventID
	if err := s.repo.Delete(ctx, combinedID, membershipNumber); err != nil {
		return err
	}

	s.logAudit(ctx, actor, combinedID, auditlog.ActionAllocationSet,
		map[string]interface{}{"membershipNumber": membershipNumber, "allocation": "deleted"}, ip)
	return nil
}

// Suggest proposes which registered members to allocate. With capacity to
// spare it returns everyone registered; otherwise it scores the field and
// draws a weighted sample, or a uniform one when the event has no weighting
// criteria.
func (s *service) Suggest(ctx context.Context, seriesID, eventID string, limitOverride *int, actor, ip string) ([]string, error) {
	combinedID := seriesID + "/" + eventID

	instance, err := s.eventsRepo.GetInstance(ctx, seriesID, eventID)
	if err != nil {
		return nil, err
	}

	allocations, err := s.repo.ListByEvent(ctx, combinedID)
	if err != nil {
		return nil, err
	}

	var registered []string
	allocated := 0
	for _, a := range allocations {
		switch a.Allocation {
		case StateRegistered:
			registered = append(registered, a.MembershipNumber)
		case StateAllocated:
			allocated++
		}
	}

	// An explicit limit replaces the capacity computation entirely
	var limit int
	if limitOverride != nil {
		limit = *limitOverride
	} else {
		limit = instance.AttendanceLimit - allocated
	}

	rules := instance.Weights()
	log.Printf("Suggesting allocations for %s: limit = %d, weighting = %v", combinedID, limit, rules)

	s.logAudit(ctx, actor, combinedID, auditlog.ActionAllocationSuggest,
		map[string]interface{}{"limit": limit, "registered": len(registered)}, ip)

	// Everyone fits, nothing to select
	if limit <= 0 || len(registered) <= limit {
		return registered, nil
	}

	if len(rules) == 0 {
		return s.selector.SelectUniform(registered, limit), nil
	}

	// Score the registered field. A member whose weighting cannot be
	// computed is excluded from the draw rather than failing the whole
	// suggestion.
	catalog := events.NewCatalog(s.eventsRepo)
	engine := weighting.NewEngine(catalog)

	scores := make(map[string]float64, len(registered))
	for _, membershipNumber := range registered {
		m, err := s.members.GetByMembershipNumber(ctx, membershipNumber)
		if err != nil {
			log.Printf("❌ Unable to score %s for event %s: %v", membershipNumber, combinedID, err)
			continue
		}

		history, err := s.memberHistory(ctx, membershipNumber)
		if err != nil {
			log.Printf("❌ Unable to load history for %s on event %s: %v", membershipNumber, combinedID, err)
			continue
		}

		weightings := engine.Score(ctx, m, instance, history)

		score := 0.0
		for criterion, weight := range rules {
			score += weight * weightings[criterion]
		}
		scores[membershipNumber] = score
	}

	// Degenerate pool after scoring failures: return the scored members
	// unselected rather than sampling an insufficient field
	if len(scores) <= limit {
		ids := make([]string, 0, len(scores))
		for id := range scores {
			ids = append(ids, id)
		}
		return ids, nil
	}

	return s.selector.SelectWeighted(scores, limit), nil
}

func (s *service) memberHistory(ctx context.Context, membershipNumber string) ([]weighting.HistoryRecord, error) {
	allocations, err := s.repo.ListByMember(ctx, membershipNumber)
	if err != nil {
		return nil, err
	}

	history := make([]weighting.HistoryRecord, 0, len(allocations))
	for _, a := range allocations {
		history = append(history, weighting.HistoryRecord{
			CombinedEventID: a.CombinedEventID,
			Allocation:      a.Allocation,
		})
	}
	return history, nil
}

func (s *service) EventRecords(ctx context.Context, membershipNumber string, since time.Time) (int, int, int, error) {
	return s.repo.EventRecordCounts(ctx, membershipNumber, since)
}

func (s *service) logAudit(ctx context.Context, actor, target, action string, details map[string]interface{}, ip string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogAction(ctx, &actor, &target, action, details, ip, "success"); err != nil {
		log.Printf("⚠️ Failed to write audit log for %s: %v", action, err)
	}
}

func isNotFound(err error) bool {
	return err != nil && apperr.Reason(err) == apperr.ReasonNotFound
}

func splitCombinedID(combined string) (seriesID, eventID string, ok bool) {
	parts := strings.SplitN(combined, "/", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
