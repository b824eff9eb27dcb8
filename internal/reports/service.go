package reports

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/kswpuk/portal-api/internal/allocation"
	"github.com/kswpuk/portal-api/internal/auditlog"
	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/member"
)

var areaRe = regexp.MustCompile(`^[A-Z]{1,2}`)

// MemberDirectory is the slice of the membership roll the reports need
type MemberDirectory interface {
	GetByMembershipNumber(ctx context.Context, membershipNumber string) (*member.Member, error)
	List(ctx context.Context) ([]member.Member, error)
	ListActive(ctx context.Context) ([]member.Member, error)
}

// AllocationStore is the allocation access the reports need
type AllocationStore interface {
	ListByEvent(ctx context.Context, combinedEventID string) ([]allocation.Allocation, error)
	ListByMember(ctx context.Context, membershipNumber string) ([]allocation.Allocation, error)
}

type Service interface {
	Attendance(ctx context.Context) (*AttendanceReport, error)
	EventOverview(ctx context.Context) (*EventReport, error)
	MemberExport(ctx context.Context, req MemberExportRequest, caller, ip string) (data []byte, filename, contentType string, err error)
	AwardCandidates(ctx context.Context) ([]member.AwardCandidate, error)
	AwardExport(ctx context.Context, format, caller, ip string) (data []byte, filename, contentType string, err error)
}

type service struct {
	members     MemberDirectory
	memberSvc   member.Service
	history     member.AllocationHistory
	eventsRepo  events.Repository
	allocations AllocationStore
	audit       auditlog.Service
}

func NewService(members MemberDirectory, memberSvc member.Service, history member.AllocationHistory,
	eventsRepo events.Repository, allocations AllocationStore, audit auditlog.Service) Service {
	return &service{
		members:     members,
		memberSvc:   memberSvc,
		history:     history,
		eventsRepo:  eventsRepo,
		allocations: allocations,
		audit:       audit,
	}
}

// Attendance builds the participation histogram for active members over the
// past year. Allocations whose event cannot be resolved are skipped rather
// than failing the whole report.
func (s *service) Attendance(ctx context.Context) (*AttendanceReport, error) {
	active, err := s.members.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	catalog := events.NewCatalog(s.eventsRepo)
	today := time.Now()
	yearAgo := today.AddDate(-1, 0, 0)

	states := []string{
		allocation.StateRegistered,
		allocation.StateAllocated,
		allocation.StateAttended,
		allocation.StateNotAllocated,
		allocation.StateReserve,
		allocation.StateDroppedOut,
		allocation.StateNoShow,
	}

	report := &AttendanceReport{Counts: map[string]map[int]int{}}
	for _, state := range states {
		report.Counts[state] = map[int]int{}
	}

	for _, m := range active {
		records, err := s.allocations.ListByMember(ctx, m.MembershipNumber)
		if err != nil {
			return nil, err
		}

		count := map[string]int{}
		for _, record := range records {
			seriesID, eventID, ok := strings.Cut(record.CombinedEventID, "/")
			if !ok {
				continue
			}
			instance, err := catalog.Instance(ctx, seriesID, eventID)
			if err != nil {
				log.Printf("⚠️ Skipping allocation for unknown event %s", record.CombinedEventID)
				continue
			}
			if instance.StartDate.Before(yearAgo) || instance.StartDate.After(today) {
				continue
			}
			count[record.Allocation]++
		}

		for _, state := range states {
			report.Counts[state][count[state]]++
		}
	}

	return report, nil
}

// EventOverview summarises delivery over the past year, split into proper
// events and socials. Attendee-hours and oversubscription are only computed
// for proper events; socials have no allocation process worth counting.
func (s *service) EventOverview(ctx context.Context) (*EventReport, error) {
	series, err := s.eventsRepo.ListSeries(ctx)
	if err != nil {
		return nil, err
	}

	report := &EventReport{
		Events:  newEventStats(),
		Socials: newEventStats(),
	}

	for _, sr := range series {
		instances, err := s.eventsRepo.ListInstances(ctx, sr.EventSeriesID)
		if err != nil {
			return nil, err
		}

		switch sr.Type {
		case events.TypeEvent:
			if err := s.accumulateStats(ctx, &report.Events, sr.EventSeriesID, instances, true); err != nil {
				return nil, err
			}
		case events.TypeSocial:
			if err := s.accumulateStats(ctx, &report.Socials, sr.EventSeriesID, instances, false); err != nil {
				return nil, err
			}
		}
	}

	return report, nil
}

func (s *service) accumulateStats(ctx context.Context, stats *EventStats, seriesID string, instances []events.EventInstance, withAllocations bool) error {
	today := time.Now()
	yearAgo := today.AddDate(-1, 0, 0)
	fiveYearsAgo := today.AddDate(-5, 0, 0)

	for i := range instances {
		instance := &instances[i]

		if !instance.StartDate.Before(fiveYearsAgo) {
			stats.StartMonths[instance.StartDate.Format("2006-01")]++
		}

		switch {
		case !instance.StartDate.Before(yearAgo) && !instance.StartDate.After(today):
			stats.EventsPastYear++
			stats.Postcodes[postcodeArea(instance.Postcode)]++

			if withAllocations {
				records, err := s.allocations.ListByEvent(ctx, instance.CombinedEventID())
				if err != nil {
					return err
				}

				attended := 0
				for _, record := range records {
					if record.Allocation == allocation.StateAttended {
						attended++
					}
				}

				hours := instance.EndDate.Sub(instance.StartDate).Hours()
				stats.HoursPastYear += hours * float64(attended)

				if instance.AttendanceLimit > 0 && len(records) > instance.AttendanceLimit {
					stats.OversubscribedPastYear++
				}
			}

		case instance.StartDate.After(today):
			stats.EventsUpcoming++
			start := instance.StartDate.Format("2006-01-02")
			if stats.NextEvent == nil || *stats.NextEvent > start {
				stats.NextEvent = &start
			}
		}
	}

	return nil
}

// MemberExport renders the roll (or a subset) with optional allocation
// status merged in for one event.
func (s *service) MemberExport(ctx context.Context, req MemberExportRequest, caller, ip string) ([]byte, string, string, error) {
	headers := []string{"membershipNumber", "firstName", "preferredName", "surname"}
	withAllocations := req.CombinedEventID != ""
	if withAllocations {
		headers = append(headers, "allocationStatus")
	}

	status := map[string]string{}
	if withAllocations {
		records, err := s.allocations.ListByEvent(ctx, req.CombinedEventID)
		if err != nil {
			return nil, "", "", err
		}
		for _, record := range records {
			status[record.MembershipNumber] = record.Allocation
		}
	}

	var selected []member.Member
	switch {
	case len(req.Members) > 0:
		for _, mn := range req.Members {
			m, err := s.members.GetByMembershipNumber(ctx, mn)
			if err != nil {
				log.Printf("⚠️ Unable to get details of %s: %v", mn, err)
				continue
			}
			selected = append(selected, *m)
		}
	case withAllocations:
		// Everyone who interacted with the event
		for mn := range status {
			m, err := s.members.GetByMembershipNumber(ctx, mn)
			if err != nil {
				log.Printf("⚠️ Unable to get details of %s: %v", mn, err)
				continue
			}
			selected = append(selected, *m)
		}
	default:
		all, err := s.members.List(ctx)
		if err != nil {
			return nil, "", "", err
		}
		selected = all
	}

	table := Table{Headers: headers}
	for _, m := range selected {
		row := []string{m.MembershipNumber, m.FirstName, m.PreferredName, m.Surname}
		if withAllocations {
			row = append(row, status[m.MembershipNumber])
		}
		table.Rows = append(table.Rows, row)
	}

	format := req.Format
	if format == "" {
		format = FormatCSV
	}

	data, filename, contentType, err := Export(table, format, "members")
	if err != nil {
		return nil, "", "", err
	}

	s.logExport(ctx, caller, "members", map[string]interface{}{
		"format":          format,
		"rows":            len(table.Rows),
		"combinedEventId": req.CombinedEventID,
	}, ip)

	return data, filename, contentType, nil
}

func (s *service) AwardCandidates(ctx context.Context) ([]member.AwardCandidate, error) {
	return s.memberSvc.AwardCandidates(ctx, s.history)
}

func (s *service) AwardExport(ctx context.Context, format, caller, ip string) ([]byte, string, string, error) {
	candidates, err := s.AwardCandidates(ctx)
	if err != nil {
		return nil, "", "", err
	}

	table := Table{Headers: []string{"membershipNumber", "firstName", "surname"}}
	for _, candidate := range candidates {
		table.Rows = append(table.Rows, []string{candidate.MembershipNumber, candidate.FirstName, candidate.Surname})
	}

	data, filename, contentType, err := Export(table, format, "award_candidates")
	if err != nil {
		return nil, "", "", err
	}

	s.logExport(ctx, caller, "awards", map[string]interface{}{
		"format": format,
		"rows":   len(table.Rows),
	}, ip)

	return data, filename, contentType, nil
}

func (s *service) logExport(ctx context.Context, caller, report string, details map[string]interface{}, ip string) {
	if s.audit == nil {
		return
	}
	details["report"] = report
	_ = s.audit.LogAction(ctx, &caller, nil, auditlog.ActionReportExported, details, ip, "success")
}

func postcodeArea(postcode string) string {
	area := areaRe.FindString(strings.ToUpper(strings.TrimSpace(postcode)))
	if area == "" {
		return "UNKNOWN"
	}
	return area
}

func newEventStats() EventStats {
	return EventStats{
		StartMonths: map[string]int{},
		Postcodes:   map[string]int{},
	}
}
