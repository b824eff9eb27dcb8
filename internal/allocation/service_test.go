package allocation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/kswpuk/portal-api/internal/apperr"
	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/member"
)

// In-memory doubles for the store-backed collaborators. The allocation map
// mirrors the composite-key uniqueness of the real table.

type stubAllocRepo struct {
	mu      sync.Mutex
	records map[string]*Allocation
}

func newStubAllocRepo() *stubAllocRepo {
	return &stubAllocRepo{records: map[string]*Allocation{}}
}

func key(combinedEventID, membershipNumber string) string {
	return combinedEventID + "|" + membershipNumber
}

func (r *stubAllocRepo) Get(_ context.Context, combinedEventID, membershipNumber string) (*Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.records[key(combinedEventID, membershipNumber)]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, apperr.NotFoundf("no allocation for %s on %s", membershipNumber, combinedEventID)
}

func (r *stubAllocRepo) ListByEvent(_ context.Context, combinedEventID string) ([]Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Allocation
	for _, a := range r.records {
		if a.CombinedEventID == combinedEventID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *stubAllocRepo) ListByMember(_ context.Context, membershipNumber string) ([]Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Allocation
	for _, a := range r.records {
		if a.MembershipNumber == membershipNumber {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *stubAllocRepo) CreateRegistered(_ context.Context, combinedEventID, membershipNumber string) (*Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(combinedEventID, membershipNumber)
	if _, exists := r.records[k]; exists {
		return nil, apperr.Conflictf("allocation for %s on %s already exists", membershipNumber, combinedEventID)
	}
	a := &Allocation{CombinedEventID: combinedEventID, MembershipNumber: membershipNumber, Allocation: StateRegistered}
	r.records[k] = a
	return a, nil
}

func (r *stubAllocRepo) DeleteRegistered(_ context.Context, combinedEventID, membershipNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(combinedEventID, membershipNumber)
	if a, ok := r.records[k]; ok && a.Allocation == StateRegistered {
		delete(r.records, k)
		return nil
	}
	return apperr.Conflictf("allocation for %s on %s is no longer REGISTERED", membershipNumber, combinedEventID)
}

func (r *stubAllocRepo) Upsert(_ context.Context, combinedEventID, membershipNumber, state string) (*Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := &Allocation{CombinedEventID: combinedEventID, MembershipNumber: membershipNumber, Allocation: state}
	r.records[key(combinedEventID, membershipNumber)] = a
	return a, nil
}

func (r *stubAllocRepo) Delete(_ context.Context, combinedEventID, membershipNumber string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(combinedEventID, membershipNumber)
	if _, ok := r.records[k]; !ok {
		return apperr.NotFoundf("no allocation for %s on %s", membershipNumber, combinedEventID)
	}
	delete(r.records, k)
	return nil
}

func (r *stubAllocRepo) EventRecordCounts(context.Context, string, time.Time) (int, int, int, error) {
	return 0, 0, 0, nil
}

func (r *stubAllocRepo) state(combinedEventID, membershipNumber string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.records[key(combinedEventID, membershipNumber)]; ok {
		return a.Allocation
	}
	return StateUnregistered
}

type stubMembers struct {
	members map[string]*member.Member
}

func (s *stubMembers) GetByMembershipNumber(_ context.Context, membershipNumber string) (*member.Member, error) {
	if m, ok := s.members[membershipNumber]; ok {
		return m, nil
	}
	return nil, apperr.NotFoundf("member %s not found", membershipNumber)
}

type stubEvents struct {
	series    map[string]*events.EventSeries
	instances map[string]*events.EventInstance
}

func (s *stubEvents) GetSeries(_ context.Context, seriesID string) (*events.EventSeries, error) {
	if series, ok := s.series[seriesID]; ok {
		return series, nil
	}
	return nil, apperr.NotFoundf("event series %s not found", seriesID)
}

func (s *stubEvents) GetInstance(_ context.Context, seriesID, eventID string) (*events.EventInstance, error) {
	if instance, ok := s.instances[seriesID+"/"+eventID]; ok {
		return instance, nil
	}
	return nil, apperr.NotFoundf("event %s/%s not found", seriesID, eventID)
}

type dispatchCall struct {
	membershipNumber string
	combinedEventID  string
	state            string
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (d *recordingDispatcher) Dispatch(_ context.Context, membershipNumber, combinedEventID, state string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{membershipNumber, combinedEventID, state})
}

type harness struct {
	repo       *stubAllocRepo
	members    *stubMembers
	events     *stubEvents
	dispatcher *recordingDispatcher
	service    Service
}

func newHarness() *harness {
	h := &harness{
		repo:       newStubAllocRepo(),
		members:    &stubMembers{members: map[string]*member.Member{}},
		events:     &stubEvents{series: map[string]*events.EventSeries{}, instances: map[string]*events.EventInstance{}},
		dispatcher: &recordingDispatcher{},
	}
	h.service = NewService(h.repo, h.members, h.events, NewSeededSelector(1), h.dispatcher, nil)
	return h
}

func (h *harness) addMember(membershipNumber string, expires time.Time) {
	h.members.members[membershipNumber] = &member.Member{
		MembershipNumber:  membershipNumber,
		DateOfBirth:       time.Date(1998, time.March, 1, 0, 0, 0, 0, time.UTC),
		JoinDate:          time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC),
		MembershipExpires: expires,
		Status:            member.StatusActive,
	}
}

func (h *harness) addInstance(t *testing.T, seriesID, eventID string, registrationDeadline time.Time, attendanceLimit int, criteria []string, weights map[string]float64) {
	t.Helper()
	criteriaJSON, err := json.Marshal(criteria)
	require.NoError(t, err)
	weightsJSON, err := json.Marshal(weights)
	require.NoError(t, err)

	h.events.instances[seriesID+"/"+eventID] = &events.EventInstance{
		EventSeriesID:      seriesID,
		EventID:            eventID,
		RegistrationDate:   registrationDeadline,
		StartDate:          registrationDeadline.AddDate(0, 1, 0),
		EndDate:            registrationDeadline.AddDate(0, 1, 2),
		AttendanceLimit:    attendanceLimit,
		AttendanceCriteria: datatypes.JSON(criteriaJSON),
		WeightingCriteria:  datatypes.JSON(weightsJSON),
	}
}

func future() time.Time {
	return time.Now().AddDate(0, 2, 0)
}

func activeExpiry() time.Time {
	return time.Now().AddDate(1, 0, 0)
}

func TestRegisterToggle(t *testing.T) {
	h := newHarness()
	h.addMember("100001", activeExpiry())
	h.addInstance(t, "camp", "summer", future(), 10, []string{"active"}, nil)

	ctx := context.Background()

	first, err := h.service.Register(ctx, "camp", "summer", "100001", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, StateRegistered, first.Allocation)
	assert.Equal(t, StateRegistered, h.repo.state("camp/summer", "100001"))

	second, err := h.service.Register(ctx, "camp", "summer", "100001", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, StateUnregistered, second.Allocation)
	assert.Equal(t, StateUnregistered, h.repo.state("camp/summer", "100001"))

	// Registration never notifies
	assert.Empty(t, h.dispatcher.calls)
}

func TestRegisterAfterDeadline(t *testing.T) {
	h := newHarness()
	h.addMember("100001", activeExpiry())
	h.addInstance(t, "camp", "summer", time.Now().AddDate(0, 0, -1), 10, nil, nil)

	_, err := h.service.Register(context.Background(), "camp", "summer", "100001", "")

	assert.ErrorIs(t, err, ErrRegistrationClosed)
	assert.Equal(t, StateUnregistered, h.repo.state("camp/summer", "100001"))
}

func TestRegisterNotEligible(t *testing.T) {
	h := newHarness()
	h.addMember("100001", time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	h.addInstance(t, "camp", "summer", future(), 10, []string{"active"}, nil)

	_, err := h.service.Register(context.Background(), "camp", "summer", "100001", "")

	assert.ErrorIs(t, err, ErrNotEligible)
	assert.Equal(t, StateUnregistered, h.repo.state("camp/summer", "100001"))
}

func TestRegisterInvalidTransition(t *testing.T) {
	h := newHarness()
	h.addMember("100001", activeExpiry())
	h.addInstance(t, "camp", "summer", future(), 10, nil, nil)

	_, err := h.repo.Upsert(context.Background(), "camp/summer", "100001", StateAllocated)
	require.NoError(t, err)

	_, err = h.service.Register(context.Background(), "camp", "summer", "100001", "")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateAllocated, h.repo.state("camp/summer", "100001"))
}

func TestRegisterUnknownEvent(t *testing.T) {
	h := newHarness()
	h.addMember("100001", activeExpiry())

	_, err := h.service.Register(context.Background(), "camp", "missing", "100001", "")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetAllocationsNotificationTriggers(t *testing.T) {
	h := newHarness()
	h.addInstance(t, "camp", "summer", future(), 10, nil, nil)

	tests := []struct {
		state    string
		notifies bool
	}{
		{StateAllocated, true},
		{StateReserve, true},
		{StateNotAllocated, true},
		{StateDroppedOut, true},
		{StateNoShow, true},
		{StateRegistered, false},
		{StateAttended, false},
	}

	for i, tt := range tests {
		membershipNumber := string(rune('a' + i))
		before := len(h.dispatcher.calls)

		_, err := h.service.SetAllocation(context.Background(),
			"camp", "summer", membershipNumber, tt.state, "admin", "")
		require.NoError(t, err)

		if tt.notifies {
			require.Len(t, h.dispatcher.calls, before+1, "state %s should notify", tt.state)
			assert.Equal(t, dispatchCall{membershipNumber, "camp/summer", tt.state}, h.dispatcher.calls[before])
		} else {
			assert.Len(t, h.dispatcher.calls, before, "state %s should not notify", tt.state)
		}
	}
}

func TestSetAllocationsBulkContinuesOnBadGroup(t *testing.T) {
	h := newHarness()
	h.addInstance(t, "camp", "summer", future(), 10, nil, nil)

	req := SetAllocationsRequest{Allocations: []AllocationGroup{
		{Allocation: "SOMETIMES", MembershipNumbers: []string{"100001"}},
		{Allocation: StateAllocated, MembershipNumbers: []string{"100002", "100003"}},
	}}

	result, err := h.service.SetAllocations(context.Background(), "camp", "summer", req, "admin", "")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, []string{"100001"}, result.Failed)
	assert.Equal(t, StateAllocated, h.repo.state("camp/summer", "100002"))
	assert.Equal(t, StateAllocated, h.repo.state("camp/summer", "100003"))
}

func TestSetAllocationRejectsUnknownState(t *testing.T) {
	h := newHarness()
	h.addInstance(t, "camp", "summer", future(), 10, nil, nil)

	_, err := h.service.SetAllocation(context.Background(), "camp", "summer", "100001", "MAYBE", "admin", "")

	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSuggestPassthroughUnderCapacity(t *testing.T) {
	h := newHarness()
	h.addInstance(t, "camp", "summer", future(), 10, nil, nil)

	ctx := context.Background()
	for _, membershipNumber := range []string{"100001", "100002", "100003"} {
		_, err := h.repo.Upsert(ctx, "camp/summer", membershipNumber, StateRegistered)
		require.NoError(t, err)
	}

	selected, err := h.service.Suggest(ctx, "camp", "summer", nil, "admin", "")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"100001", "100002", "100003"}, selected)
}

func TestSuggestAccountsForExistingAllocations(t *testing.T) {
	h := newHarness()
	h.addInstance(t, "camp", "summer", future(), 4, nil, nil)

	ctx := context.Background()
	// 3 of 4 places already taken, 5 registered: only 1 can be drawn
	for _, membershipNumber := range []string{"a1", "a2", "a3"} {
		_, err := h.repo.Upsert(ctx, "camp/summer", membershipNumber, StateAllocated)
		require.NoError(t, err)
	}
	registered := []string{"r1", "r2", "r3", "r4", "r5"}
	for _, membershipNumber := range registered {
		_, err := h.repo.Upsert(ctx, "camp/summer", membershipNumber, StateRegistered)
		require.NoError(t, err)
	}

	selected, err := h.service.Suggest(ctx, "camp", "summer", nil, "admin", "")
	require.NoError(t, err)

	require.Len(t, selected, 1)
	assert.Subset(t, registered, selected)
}

func TestSuggestLimitOverrideReplacesComputation(t *testing.T) {
	h := newHarness()
	h.addInstance(t, "camp", "summer", future(), 1, nil, nil)

	ctx := context.Background()
	registered := []string{"r1", "r2", "r3"}
	for _, membershipNumber := range registered {
		_, err := h.repo.Upsert(ctx, "camp/summer", membershipNumber, StateRegistered)
		require.NoError(t, err)
	}

	limit := 2
	selected, err := h.service.Suggest(ctx, "camp", "summer", &limit, "admin", "")
	require.NoError(t, err)

	require.Len(t, selected, 2)
	assert.Subset(t, registered, selected)
}

func TestSuggestZeroCapacityReturnsRegistered(t *testing.T) {
	h := newHarness()
	h.addInstance(t, "camp", "summer", future(), 0, nil, nil)

	ctx := context.Background()
	registered := []string{"r1", "r2"}
	for _, membershipNumber := range registered {
		_, err := h.repo.Upsert(ctx, "camp/summer", membershipNumber, StateRegistered)
		require.NoError(t, err)
	}

	selected, err := h.service.Suggest(ctx, "camp", "summer", nil, "admin", "")
	require.NoError(t, err)

	// Capacity <= 0 means no selection is attempted
	assert.ElementsMatch(t, registered, selected)
}

func TestSuggestWeightedDegenerateFallback(t *testing.T) {
	h := newHarness()
	h.addInstance(t, "camp", "summer", future(), 2, nil, map[string]float64{"joined_1yr": 1})

	ctx := context.Background()
	// Only one of the four registered members resolves to a member record,
	// so scoring fails for the rest and the scored pool fits the capacity.
	h.addMember("100001", activeExpiry())
	for _, membershipNumber := range []string{"100001", "ghost1", "ghost2", "ghost3"} {
		_, err := h.repo.Upsert(ctx, "camp/summer", membershipNumber, StateRegistered)
		require.NoError(t, err)
	}

	selected, err := h.service.Suggest(ctx, "camp", "summer", nil, "admin", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"100001"}, selected)
}

func TestSuggestWeightedSelection(t *testing.T) {
	h := newHarness()
	h.addInstance(t, "camp", "summer", future(), 2, nil, map[string]float64{"joined_1yr": 5})

	ctx := context.Background()
	registered := []string{"100001", "100002", "100003", "100004"}
	for _, membershipNumber := range registered {
		h.addMember(membershipNumber, activeExpiry())
		_, err := h.repo.Upsert(ctx, "camp/summer", membershipNumber, StateRegistered)
		require.NoError(t, err)
	}

	selected, err := h.service.Suggest(ctx, "camp", "summer", nil, "admin", "")
	require.NoError(t, err)

	require.Len(t, selected, 2)
	assert.Subset(t, registered, selected)
}

func TestUniquenessInvariant(t *testing.T) {
	h := newHarness()
	h.addMember("100001", activeExpiry())
	h.addInstance(t, "camp", "summer", future(), 10, nil, nil)

	ctx := context.Background()

	// Register, then overwrite administratively, then delete: never more
	// than one record for the pair.
	_, err := h.service.Register(ctx, "camp", "summer", "100001", "")
	require.NoError(t, err)

	_, err = h.service.SetAllocation(ctx, "camp", "summer", "100001", StateAllocated, "admin", "")
	require.NoError(t, err)

	records, err := h.repo.ListByEvent(ctx, "camp/summer")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, StateAllocated, records[0].Allocation)
}
