// Package eligibility decides whether a member may register for an event
// instance. Evaluation is a pure function of the member and instance
// snapshots so it can be reused for display, dry-runs and the registration
// guard without side effects.
package eligibility

import (
	"log"
	"time"

	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/member"
)

// Rule is the outcome of one attendance criterion
type Rule struct {
	ID     string `json:"id"`
	Passed bool   `json:"passed"`
}

// Result is the outcome of a full evaluation
type Result struct {
	Eligible bool   `json:"eligible"`
	Rules    []Rule `json:"rules"`
}

// Under25Cutoff is the birthday on or after which a member counts as under
// 25 at the event: the event start date's month and day, 25 years earlier.
func Under25Cutoff(eventStart time.Time) time.Time {
	return time.Date(eventStart.Year()-25, eventStart.Month(), eventStart.Day(), 0, 0, 0, 0, time.UTC)
}

// Evaluate runs the instance's attendance criteria against the member.
// Unknown tokens are logged and ignored; they should have been rejected when
// the event was configured. A criteria list of only unknown tokens is
// vacuously eligible.
func Evaluate(m *member.Member, instance *events.EventInstance, today time.Time) Result {
	result := Result{Eligible: true}

	for _, criterion := range instance.Criteria() {
		switch criterion {
		case "active":
			result.Rules = append(result.Rules, Rule{ID: criterion, Passed: evaluateActive(m, today)})
		case "under25":
			result.Rules = append(result.Rules, Rule{ID: criterion, Passed: evaluateUnder25(m, instance)})
		case "over25":
			result.Rules = append(result.Rules, Rule{ID: criterion, Passed: !evaluateUnder25(m, instance)})
		default:
			log.Printf("⚠️ Unexpected rule %s - rule will be ignored", criterion)
		}
	}

	for _, rule := range result.Rules {
		if !rule.Passed {
			result.Eligible = false
			break
		}
	}
	return result
}

func evaluateActive(m *member.Member, today time.Time) bool {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return !m.MembershipExpires.Before(day)
}

func evaluateUnder25(m *member.Member, instance *events.EventInstance) bool {
	return !m.DateOfBirth.Before(Under25Cutoff(instance.StartDate))
}
