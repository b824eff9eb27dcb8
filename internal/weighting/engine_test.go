package weighting

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/kswpuk/portal-api/internal/apperr"
	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/member"
)

// stubStore is an in-memory catalog backing for tests
type stubStore struct {
	series    map[string]*events.EventSeries
	instances map[string]*events.EventInstance
}

func (s *stubStore) GetSeries(_ context.Context, seriesID string) (*events.EventSeries, error) {
	if series, ok := s.series[seriesID]; ok {
		return series, nil
	}
	return nil, apperr.NotFoundf("event series %s not found", seriesID)
}

func (s *stubStore) GetInstance(_ context.Context, seriesID, eventID string) (*events.EventInstance, error) {
	if instance, ok := s.instances[seriesID+"/"+eventID]; ok {
		return instance, nil
	}
	return nil, apperr.NotFoundf("event %s/%s not found", seriesID, eventID)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store *stubStore
}

func newFixture() *fixture {
	return &fixture{store: &stubStore{
		series:    map[string]*events.EventSeries{},
		instances: map[string]*events.EventInstance{},
	}}
}

func (f *fixture) addSeries(id, seriesType string) {
	f.store.series[id] = &events.EventSeries{EventSeriesID: id, Type: seriesType}
}

func (f *fixture) addInstance(seriesID, eventID string, start time.Time) {
	f.store.instances[seriesID+"/"+eventID] = &events.EventInstance{
		EventSeriesID: seriesID,
		EventID:       eventID,
		StartDate:     start,
	}
}

func (f *fixture) engine() *Engine {
	return NewEngine(events.NewCatalog(f.store))
}

func scored(t *testing.T, seriesID, eventID string, start time.Time, criteria map[string]float64) *events.EventInstance {
	t.Helper()
	raw, err := json.Marshal(criteria)
	require.NoError(t, err)
	return &events.EventInstance{
		EventSeriesID:     seriesID,
		EventID:           eventID,
		StartDate:         start,
		WeightingCriteria: datatypes.JSON(raw),
	}
}

func TestScoreLazyGroups(t *testing.T) {
	f := newFixture()
	engine := f.engine()

	m := &member.Member{JoinDate: date(2020, time.January, 1)}
	instance := scored(t, "camp", "summer-26", date(2026, time.August, 1),
		map[string]float64{"joined_1yr": 5})

	history := []HistoryRecord{
		{CombinedEventID: "camp/summer-25", Allocation: "ATTENDED"},
	}

	weightings := engine.Score(context.Background(), m, instance, history)

	// Only the joined_* group was configured, so no attendance buckets
	// appear even though the history has an attendance.
	assert.NotContains(t, weightings, "attended")
	assert.NotContains(t, weightings, "under_25")
	assert.Equal(t, 0.0, weightings["joined_1yr"])
	assert.Equal(t, 0.0, weightings["joined_5yr"])
}

func TestScoreAttendedWindows(t *testing.T) {
	f := newFixture()
	eventStart := date(2026, time.August, 1)

	// 400 days before the scored event
	f.addInstance("camp", "spring-25", eventStart.AddDate(0, 0, -400))
	engine := f.engine()

	m := &member.Member{}
	instance := scored(t, "camp", "summer-26", eventStart, map[string]float64{"attended_1yr": 1})
	history := []HistoryRecord{
		{CombinedEventID: "camp/spring-25", Allocation: "ATTENDED"},
	}

	weightings := engine.Score(context.Background(), m, instance, history)

	assert.Equal(t, 1.0, weightings["attended"])
	assert.Equal(t, 0.0, weightings["attended_1yr"])
	assert.Equal(t, 1.0, weightings["attended_2yr"])
	assert.Equal(t, 1.0, weightings["attended_3yr"])
	assert.Equal(t, 1.0, weightings["attended_5yr"])
}

func TestScoreAttendedSameSeriesOnly(t *testing.T) {
	f := newFixture()
	eventStart := date(2026, time.August, 1)
	f.addInstance("hike", "may-26", eventStart.AddDate(0, -3, 0))
	engine := f.engine()

	instance := scored(t, "camp", "summer-26", eventStart, map[string]float64{"attended": 1})
	history := []HistoryRecord{
		{CombinedEventID: "hike/may-26", Allocation: "ATTENDED"},
	}

	weightings := engine.Score(context.Background(), &member.Member{}, instance, history)

	assert.Equal(t, 0.0, weightings["attended"])
}

func TestScoreLapsesSkipSocialSeries(t *testing.T) {
	f := newFixture()
	eventStart := date(2026, time.August, 1)

	f.addSeries("camp", events.TypeEvent)
	f.addSeries("pub", events.TypeSocial)
	f.addInstance("camp", "jan-26", eventStart.AddDate(0, -2, 0))
	f.addInstance("pub", "jan-26", eventStart.AddDate(0, -2, 0))
	engine := f.engine()

	instance := scored(t, "hike", "autumn-26", eventStart, map[string]float64{"droppedout_6mo": 3})
	history := []HistoryRecord{
		{CombinedEventID: "camp/jan-26", Allocation: "DROPPED_OUT"},
		{CombinedEventID: "pub/jan-26", Allocation: "DROPPED_OUT"},
	}

	weightings := engine.Score(context.Background(), &member.Member{}, instance, history)

	// Dropping out of a social carries no penalty
	assert.Equal(t, 1.0, weightings["droppedout_6mo"])
	assert.Equal(t, 1.0, weightings["droppedout_1yr"])
}

func TestScoreNoShowWindows(t *testing.T) {
	f := newFixture()
	eventStart := date(2026, time.August, 1)

	f.addSeries("camp", events.TypeEvent)
	// 10 months before: outside 6mo, inside 1yr
	f.addInstance("camp", "oct-25", eventStart.AddDate(0, -10, 0))
	engine := f.engine()

	instance := scored(t, "hike", "autumn-26", eventStart, map[string]float64{"noshow_1yr": 2})
	history := []HistoryRecord{
		{CombinedEventID: "camp/oct-25", Allocation: "NO_SHOW"},
	}

	weightings := engine.Score(context.Background(), &member.Member{}, instance, history)

	assert.Equal(t, 0.0, weightings["noshow_6mo"])
	assert.Equal(t, 1.0, weightings["noshow_1yr"])
	assert.Equal(t, 1.0, weightings["noshow_2yr"])
	assert.Equal(t, 1.0, weightings["noshow_3yr"])
}

func TestScoreSoftFailsMissingHistory(t *testing.T) {
	f := newFixture()
	engine := f.engine()

	eventStart := date(2026, time.August, 1)
	instance := scored(t, "camp", "summer-26", eventStart, map[string]float64{"attended_1yr": 1})

	// The historical instance was deleted; the record still counts toward
	// the unbucketed total but no window.
	history := []HistoryRecord{
		{CombinedEventID: "camp/lost-event", Allocation: "ATTENDED"},
	}

	weightings := engine.Score(context.Background(), &member.Member{}, instance, history)

	assert.Equal(t, 1.0, weightings["attended"])
	assert.Equal(t, 0.0, weightings["attended_1yr"])
	assert.Equal(t, 0.0, weightings["attended_5yr"])
}

func TestScoreAgeIndicators(t *testing.T) {
	f := newFixture()
	engine := f.engine()

	eventStart := date(2026, time.August, 1)
	instance := scored(t, "camp", "summer-26", eventStart, map[string]float64{"under_25": 2, "over_25": 1})

	young := &member.Member{DateOfBirth: date(2004, time.January, 1)}
	weightings := engine.Score(context.Background(), young, instance, nil)
	assert.Equal(t, 1.0, weightings["under_25"])
	assert.Equal(t, 0.0, weightings["over_25"])

	old := &member.Member{DateOfBirth: date(1990, time.January, 1)}
	weightings = engine.Score(context.Background(), old, instance, nil)
	assert.Equal(t, 0.0, weightings["under_25"])
	assert.Equal(t, 1.0, weightings["over_25"])
}

func TestScoreJoinedWindows(t *testing.T) {
	f := newFixture()
	engine := f.engine()

	eventStart := date(2026, time.August, 1)
	instance := scored(t, "camp", "summer-26", eventStart, map[string]float64{"joined_2yr": 1})

	m := &member.Member{JoinDate: eventStart.AddDate(0, 0, -500)}
	weightings := engine.Score(context.Background(), m, instance, nil)

	assert.Equal(t, 0.0, weightings["joined_1yr"])
	assert.Equal(t, 1.0, weightings["joined_2yr"])
	assert.Equal(t, 1.0, weightings["joined_3yr"])
	assert.Equal(t, 1.0, weightings["joined_5yr"])
}

func TestScoreQSAContributesNothing(t *testing.T) {
	f := newFixture()
	engine := f.engine()

	instance := scored(t, "camp", "summer-26", date(2026, time.August, 1), map[string]float64{"qsa_1yr": 10})
	m := &member.Member{QSAReceived: true}

	weightings := engine.Score(context.Background(), m, instance, nil)

	assert.Empty(t, weightings)
}
