// Package weighting computes the per-criterion scores used to bias event
// selection. Scores are counts (attendances, drop outs, no shows) or binary
// indicators (age bands, join date windows) relative to the start of the
// event being scored.
package weighting

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/kswpuk/portal-api/internal/eligibility"
	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/member"
)

// Allocation states that feed the weighting counts
const (
	stateAttended   = "ATTENDED"
	stateDroppedOut = "DROPPED_OUT"
	stateNoShow     = "NO_SHOW"
)

const daysPerYear = 365.25

// HistoryRecord is one allocation from the member's history. Records are
// resolved against the catalog lazily, only when a criterion group needs
// them.
type HistoryRecord struct {
	CombinedEventID string
	Allocation      string
}

// Engine scores members against an instance's weighting criteria. The
// catalog must be scoped to the same top-level operation as the engine.
type Engine struct {
	catalog *events.Catalog
}

func NewEngine(catalog *events.Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Score computes the criteria named in instance.WeightingCriteria for one
// member. Criterion groups whose tokens are absent are never computed, so an
// event with no attended_* criteria does not walk the member's history.
//
// Historical lookups are best-effort: an allocation whose event or series can
// no longer be resolved is skipped and counts toward no bucket. Failures on
// the primary member and instance are the caller's responsibility; this
// function never fails.
func (e *Engine) Score(ctx context.Context, m *member.Member, instance *events.EventInstance, history []HistoryRecord) map[string]float64 {
	rules := instance.Weights()
	eventStart := instance.StartDate

	weightings := map[string]float64{}

	if hasAny(rules, "under_25", "over_25") {
		cutoff := eligibility.Under25Cutoff(eventStart)
		weightings["under_25"] = indicator(!m.DateOfBirth.Before(cutoff))
		weightings["over_25"] = indicator(m.DateOfBirth.Before(cutoff))
	}

	if hasAny(rules, "attended", "attended_1yr", "attended_2yr", "attended_3yr", "attended_5yr") {
		e.scoreAttended(ctx, instance, history, weightings)
	}

	if hasAny(rules, "droppedout_6mo", "droppedout_1yr", "droppedout_2yr", "droppedout_3yr") {
		e.scoreLapses(ctx, stateDroppedOut, "droppedout", eventStart, history, weightings)
	}

	if hasAny(rules, "noshow_6mo", "noshow_1yr", "noshow_2yr", "noshow_3yr") {
		e.scoreLapses(ctx, stateNoShow, "noshow", eventStart, history, weightings)
	}

	if hasAny(rules, "joined_1yr", "joined_2yr", "joined_3yr", "joined_5yr") {
		joinedDays := int(eventStart.Sub(m.JoinDate).Hours() / 24)
		weightings["joined_1yr"] = indicator(joinedDays <= 365)
		weightings["joined_2yr"] = indicator(joinedDays <= 365*2)
		weightings["joined_3yr"] = indicator(joinedDays <= 365*3)
		weightings["joined_5yr"] = indicator(joinedDays <= 365*5)
	}

	// qsa_* criteria are accepted at configuration time but contribute
	// nothing until the award data is available in the portal.

	return weightings
}

// scoreAttended counts ATTENDED allocations restricted to the same series as
// the scored instance, in cumulative recency windows.
func (e *Engine) scoreAttended(ctx context.Context, instance *events.EventInstance, history []HistoryRecord, weightings map[string]float64) {
	weightings["attended"] = 0
	weightings["attended_1yr"] = 0
	weightings["attended_2yr"] = 0
	weightings["attended_3yr"] = 0
	weightings["attended_5yr"] = 0

	for _, record := range history {
		if record.Allocation != stateAttended {
			continue
		}

		seriesID, eventID, ok := splitCombinedID(record.CombinedEventID)
		if !ok || seriesID != instance.EventSeriesID {
			continue
		}

		weightings["attended"]++

		past, err := e.catalog.Instance(ctx, seriesID, eventID)
		if err != nil {
			log.Printf("⚠️ Skipping historical event %s in weighting: %v", record.CombinedEventID, err)
			continue
		}

		diff := yearsBetween(past.StartDate, instance.StartDate)
		if diff < 1 {
			weightings["attended_1yr"]++
		}
		if diff < 2 {
			weightings["attended_2yr"]++
		}
		if diff < 3 {
			weightings["attended_3yr"]++
		}
		if diff < 5 {
			weightings["attended_5yr"]++
		}
	}
}

// scoreLapses counts DROPPED_OUT or NO_SHOW allocations across all series,
// skipping social and no-impact series since missing those carries no
// penalty.
func (e *Engine) scoreLapses(ctx context.Context, state, prefix string, eventStart time.Time, history []HistoryRecord, weightings map[string]float64) {
	weightings[prefix+"_6mo"] = 0
	weightings[prefix+"_1yr"] = 0
	weightings[prefix+"_2yr"] = 0
	weightings[prefix+"_3yr"] = 0

	for _, record := range history {
		if record.Allocation != state {
			continue
		}

		seriesID, eventID, ok := splitCombinedID(record.CombinedEventID)
		if !ok {
			continue
		}

		series, err := e.catalog.Series(ctx, seriesID)
		if err != nil {
			log.Printf("⚠️ Skipping historical series %s in weighting: %v", seriesID, err)
			continue
		}
		if series.Type == events.TypeSocial || series.Type == events.TypeNoImpact {
			continue
		}

		past, err := e.catalog.Instance(ctx, seriesID, eventID)
		if err != nil {
			log.Printf("⚠️ Skipping historical event %s in weighting: %v", record.CombinedEventID, err)
			continue
		}

		diff := yearsBetween(past.StartDate, eventStart)
		if diff < 0.5 {
			weightings[prefix+"_6mo"]++
		}
		if diff < 1 {
			weightings[prefix+"_1yr"]++
		}
		if diff < 2 {
			weightings[prefix+"_2yr"]++
		}
		if diff < 3 {
			weightings[prefix+"_3yr"]++
		}
	}
}

func hasAny(rules map[string]float64, tokens ...string) bool {
	for _, token := range tokens {
		if _, ok := rules[token]; ok {
			return true
		}
	}
	return false
}

func splitCombinedID(combined string) (seriesID, eventID string, ok bool) {
	parts := strings.SplitN(combined, "/", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// yearsBetween measures fractional years between two event starts.
func yearsBetween(then, now time.Time) float64 {
	return now.Sub(then).Hours() / 24 / daysPerYear
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
