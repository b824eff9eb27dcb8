package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kswpuk/portal-api/config"
	"github.com/kswpuk/portal-api/internal/allocation"
	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/member"
	"github.com/kswpuk/portal-api/utils"
)

// reminderDaysAhead is how far before an event the attendance reminder goes
// out to allocated members.
const reminderDaysAhead = 7

// EventReminder mails allocated members a week before their event starts
type EventReminder struct {
	eventsRepo  events.Repository
	allocations allocation.Repository
	members     member.Lookup
	cfg         *config.Config
}

func NewEventReminder(eventsRepo events.Repository, allocations allocation.Repository, members member.Lookup, cfg *config.Config) *EventReminder {
	return &EventReminder{eventsRepo: eventsRepo, allocations: allocations, members: members, cfg: cfg}
}

func (j *EventReminder) Run(ctx context.Context) error {
	day := time.Now().AddDate(0, 0, reminderDaysAhead)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1).Add(-time.Second)

	instances, err := j.eventsRepo.ListBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list upcoming instances: %w", err)
	}

	log.Printf("%d events start on %s", len(instances), from.Format("2006-01-02"))

	catalog := events.NewCatalog(j.eventsRepo)
	for i := range instances {
		instance := &instances[i]

		series, err := catalog.Series(ctx, instance.EventSeriesID)
		if err != nil {
			log.Printf("⚠️ Unable to get event series information for %s: %v", instance.EventSeriesID, err)
			continue
		}

		records, err := j.allocations.ListByEvent(ctx, instance.CombinedEventID())
		if err != nil {
			log.Printf("❌ Unable to get allocations for %s: %v", instance.CombinedEventID(), err)
			continue
		}

		for _, record := range records {
			if record.Allocation != allocation.StateAllocated {
				continue
			}
			j.remind(ctx, record.MembershipNumber, series.Name, instance)
		}
	}

	return nil
}

func (j *EventReminder) remind(ctx context.Context, membershipNumber, eventName string, instance *events.EventInstance) {
	m, err := j.members.GetByMembershipNumber(ctx, membershipNumber)
	if err != nil {
		log.Printf("⚠️ Unable to get details of %s: %v", membershipNumber, err)
		return
	}

	subject := fmt.Sprintf("%s starts on %s", eventName, instance.StartDate.Format("2006-01-02"))
	body := fmt.Sprintf(`Hi %s,

A reminder that you are allocated to attend the following event:

Event: %s
Starts: %s
Location: %s

If you can no longer attend, please let us know as soon as possible via the portal so your place can be reallocated.

The KSWP Portal`, m.DisplayName(), eventName, instance.StartDate.Format("Monday 2 January 2006 15:04"), instance.Location)

	if err := utils.SendEmail(m.Email, j.cfg.EventsEmail, subject, body); err != nil {
		log.Printf("❌ Unable to send event reminder to %s: %v", membershipNumber, err)
	}
}

// AllocationReminder tells the events team about events whose registration
// closed the day before and still have unprocessed registrations.
type AllocationReminder struct {
	eventsRepo  events.Repository
	allocations allocation.Repository
	cfg         *config.Config
}

func NewAllocationReminder(eventsRepo events.Repository, allocations allocation.Repository, cfg *config.Config) *AllocationReminder {
	return &AllocationReminder{eventsRepo: eventsRepo, allocations: allocations, cfg: cfg}
}

func (j *AllocationReminder) Run(ctx context.Context) error {
	today := time.Now()
	yesterday := today.AddDate(0, 0, -1).Format("2006-01-02")

	upcoming, err := j.eventsRepo.ListUpcoming(ctx, today)
	if err != nil {
		return fmt.Errorf("list upcoming instances: %w", err)
	}

	catalog := events.NewCatalog(j.eventsRepo)
	var pending []string
	for i := range upcoming {
		instance := &upcoming[i]
		if instance.RegistrationDate.Format("2006-01-02") != yesterday {
			continue
		}

		records, err := j.allocations.ListByEvent(ctx, instance.CombinedEventID())
		if err != nil {
			log.Printf("❌ Unable to get allocations for %s: %v", instance.CombinedEventID(), err)
			continue
		}

		registered := 0
		for _, record := range records {
			if record.Allocation == allocation.StateRegistered {
				registered++
			}
		}
		if registered == 0 {
			continue
		}

		name := instance.CombinedEventID()
		if series, err := catalog.Series(ctx, instance.EventSeriesID); err == nil {
			name = series.Name
		}
		pending = append(pending, fmt.Sprintf("%s (%s): %d registered", name, instance.CombinedEventID(), registered))
	}

	if len(pending) == 0 {
		return nil
	}

	log.Printf("%d events closed on %s with unprocessed registrations", len(pending), yesterday)

	subject := "Events awaiting allocation"
	body := fmt.Sprintf(`The following events closed for registration yesterday and have members waiting to be allocated:

%s

Allocate places via the portal at https://%s.

The KSWP Portal`, strings.Join(pending, "\n"), j.cfg.PortalDomain)

	if err := utils.SendEmail(j.cfg.EventsEmail, j.cfg.EventsEmail, subject, body); err != nil {
		return fmt.Errorf("send allocation reminder: %w", err)
	}
	return nil
}
