package member

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kswpuk/portal-api/internal/apperr"
)

type fakeRepo struct {
	members map[string]*Member
	updated *Member
}

func newFakeRepo(members ...Member) *fakeRepo {
	r := &fakeRepo{members: map[string]*Member{}}
	for i := range members {
		m := members[i]
		r.members[m.MembershipNumber] = &m
	}
	return r
}

func (r *fakeRepo) Create(ctx context.Context, m *Member) error {
	if _, ok := r.members[m.MembershipNumber]; ok {
		return apperr.Conflictf("member %s already exists", m.MembershipNumber)
	}
	r.members[m.MembershipNumber] = m
	return nil
}

func (r *fakeRepo) GetByMembershipNumber(ctx context.Context, membershipNumber string) (*Member, error) {
	m, ok := r.members[membershipNumber]
	if !ok {
		return nil, apperr.NotFoundf("member %s not found", membershipNumber)
	}
	copied := *m
	return &copied, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]Member, error) {
	var out []Member
	for _, m := range r.members {
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeRepo) ListActive(ctx context.Context) ([]Member, error) {
	var out []Member
	for _, m := range r.members {
		if m.Active() && !m.Suspended {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeRepo) Update(ctx context.Context, m *Member) error {
	r.members[m.MembershipNumber] = m
	r.updated = m
	return nil
}

func (r *fakeRepo) SetSuspended(ctx context.Context, membershipNumber string, suspended bool) error {
	m, ok := r.members[membershipNumber]
	if !ok {
		return apperr.NotFoundf("member %s not found", membershipNumber)
	}
	m.Suspended = suspended
	return nil
}

func (r *fakeRepo) SetStatus(ctx context.Context, membershipNumber string, status string) error {
	m, ok := r.members[membershipNumber]
	if !ok {
		return apperr.NotFoundf("member %s not found", membershipNumber)
	}
	m.Status = status
	return nil
}

func (r *fakeRepo) ExtendMembership(ctx context.Context, membershipNumber string, expires time.Time) error {
	m, ok := r.members[membershipNumber]
	if !ok {
		return apperr.NotFoundf("member %s not found", membershipNumber)
	}
	m.MembershipExpires = expires
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, membershipNumber string) error {
	if _, ok := r.members[membershipNumber]; !ok {
		return apperr.NotFoundf("member %s not found", membershipNumber)
	}
	delete(r.members, membershipNumber)
	return nil
}

func (r *fakeRepo) ExpiringBetween(ctx context.Context, from, to time.Time) ([]Member, error) {
	var out []Member
	for _, m := range r.members {
		if !m.MembershipExpires.Before(from) && !m.MembershipExpires.After(to) {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeHistory struct {
	attended, noShows, dropOuts map[string]int
}

func (h *fakeHistory) EventRecords(ctx context.Context, membershipNumber string, since time.Time) (int, int, int, error) {
	return h.attended[membershipNumber], h.noShows[membershipNumber], h.dropOuts[membershipNumber], nil
}

func testMember(n string) Member {
	return Member{
		MembershipNumber:  n,
		FirstName:         "Ada",
		Surname:           "Lovelace",
		DateOfBirth:       time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		JoinDate:          time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		Email:             "ada@example.com",
		Status:            StatusActive,
		MembershipExpires: time.Now().AddDate(1, 0, 0),
	}
}

func TestListHidesEmailForNonCommittee(t *testing.T) {
	svc := NewService(newFakeRepo(testMember("100001")), nil)

	summaries, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Empty(t, summaries[0].Email)

	summaries, err = svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", summaries[0].Email)
}

func TestUpdateValidatesAndNormalizes(t *testing.T) {
	repo := newFakeRepo(testMember("100001"))
	svc := NewService(repo, nil)

	req := UpdateMemberRequest{
		FirstName:                 "Ada",
		Surname:                   "Lovelace",
		Email:                     "ada@example.com",
		Telephone:                 "07700 900123",
		Address:                   "12 Analytical Way",
		Postcode:                  "sw1a1aa",
		EmergencyContactName:      "Charles Babbage",
		EmergencyContactTelephone: "0115 496 0000",
	}

	m, err := svc.Update(context.Background(), "100001", req, "100001", "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "+447700900123", m.Telephone)
	assert.Equal(t, "SW1A 1AA", m.Postcode)
	assert.Equal(t, "+441154960000", m.EmergencyContactTelephone)
	require.NotNil(t, repo.updated)
}

func TestUpdateRejectsInvalidDetails(t *testing.T) {
	svc := NewService(newFakeRepo(testMember("100001")), nil)

	req := UpdateMemberRequest{
		FirstName:                 "",
		Surname:                   "Lovelace",
		Email:                     "not-an-email",
		Telephone:                 "12345",
		Address:                   "",
		Postcode:                  "nope",
		EmergencyContactName:      "",
		EmergencyContactTelephone: "",
	}

	_, err := svc.Update(context.Background(), "100001", req, "100001", "")
	require.Error(t, err)

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "First name cannot be empty")
	assert.Contains(t, verr.Messages, "E-mail address is not valid")
	assert.Contains(t, verr.Messages, "Address cannot be empty")
	assert.Contains(t, verr.Messages, "Postcode is not valid")
	assert.Contains(t, verr.Messages, "Emergency contact name cannot be empty")
}

func TestCompareActions(t *testing.T) {
	active := testMember("100001")
	lapsed := testMember("100002")
	lapsed.Status = StatusInactive
	missing := testMember("100003")

	svc := NewService(newFakeRepo(active, lapsed, missing), nil)

	// 100004 appears only in the national export, 100003 only in the portal.
	results, err := svc.Compare(context.Background(), []string{"100001", "100002", "100004"})
	require.NoError(t, err)
	require.Len(t, results, 4)

	actions := map[string]string{}
	for _, r := range results {
		actions[r.MembershipNumber] = r.Action
	}

	assert.Equal(t, CompareNone, actions["100001"])
	assert.Equal(t, CompareRemoveFromCompass, actions["100002"])
	assert.Equal(t, CompareAddToCompass, actions["100003"])
	assert.Equal(t, CompareRemoveFromCompass, actions["100004"])
}

func TestCompareEmptyList(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Compare(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReportCounts(t *testing.T) {
	active := testMember("100001")
	lapsed := testMember("100002")
	lapsed.Status = StatusInactive

	svc := NewService(newFakeRepo(active, lapsed), nil)

	report, err := svc.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Counts.Status[StatusActive])
	assert.Equal(t, 1, report.Counts.Status[StatusInactive])

	total := 0
	for _, n := range report.Counts.Time {
		total += n
	}
	assert.Equal(t, 2, total)

	total = 0
	for _, n := range report.Counts.Age {
		total += n
	}
	assert.Equal(t, 2, total)
}

func TestAwardCandidatesCriteria(t *testing.T) {
	qualifying := testMember("100001")
	recentJoiner := testMember("100002")
	recentJoiner.JoinDate = time.Now().AddDate(-2, 0, 0)
	noShow := testMember("100003")
	serialDropOut := testMember("100004")
	rareAttender := testMember("100005")

	repo := newFakeRepo(qualifying, recentJoiner, noShow, serialDropOut, rareAttender)
	svc := NewService(repo, nil)

	history := &fakeHistory{
		attended: map[string]int{"100001": 25, "100002": 25, "100003": 25, "100004": 25, "100005": 5},
		noShows:  map[string]int{"100003": 1},
		dropOuts: map[string]int{"100001": 3, "100004": 4},
	}

	candidates, err := svc.AwardCandidates(context.Background(), history)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "100001", candidates[0].MembershipNumber)
}

func TestWholeYears(t *testing.T) {
	today := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		then time.Time
		want int
	}{
		{time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC), 6},
		{time.Date(2020, 6, 16, 0, 0, 0, 0, time.UTC), 5},
		{time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC), 5},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, wholeYears(c.then, today), "since %s", c.then.Format("2006-01-02"))
	}
}

func TestAgeBands(t *testing.T) {
	cases := map[int]string{
		17: "UNDER_18", 18: "18_25", 24: "18_25", 25: "25_35",
		34: "25_35", 44: "35_45", 54: "45_55", 64: "55_65", 65: "OVER_65",
	}
	for age, want := range cases {
		assert.Equal(t, want, ageBand(age), fmt.Sprintf("age %d", age))
	}
}
