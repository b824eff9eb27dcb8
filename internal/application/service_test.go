package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kswpuk/portal-api/config"
	"github.com/kswpuk/portal-api/internal/apperr"
	"github.com/kswpuk/portal-api/internal/member"
)

type fakeRepo struct {
	apps map[string]*Application
	refs map[string]map[string]*Reference
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		apps: map[string]*Application{},
		refs: map[string]map[string]*Reference{},
	}
}

func (r *fakeRepo) Create(ctx context.Context, app *Application, refs []Reference) error {
	if _, ok := r.apps[app.MembershipNumber]; ok {
		return apperr.Conflictf("application %s already exists", app.MembershipNumber)
	}
	app.SubmittedAt = time.Now()
	r.apps[app.MembershipNumber] = app
	r.refs[app.MembershipNumber] = map[string]*Reference{}
	for i := range refs {
		ref := refs[i]
		r.refs[app.MembershipNumber][ref.ReferenceEmail] = &ref
	}
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, membershipNumber string) (*Application, error) {
	app, ok := r.apps[membershipNumber]
	if !ok {
		return nil, apperr.NotFoundf("application %s", membershipNumber)
	}
	return app, nil
}

func (r *fakeRepo) Exists(ctx context.Context, membershipNumber string) (bool, error) {
	_, ok := r.apps[membershipNumber]
	return ok, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]Application, error) {
	var out []Application
	for _, app := range r.apps {
		out = append(out, *app)
	}
	return out, nil
}

func (r *fakeRepo) Delete(ctx context.Context, membershipNumber string) error {
	if _, ok := r.apps[membershipNumber]; !ok {
		return apperr.NotFoundf("application %s", membershipNumber)
	}
	delete(r.apps, membershipNumber)
	delete(r.refs, membershipNumber)
	return nil
}

func (r *fakeRepo) GetReference(ctx context.Context, membershipNumber, email string) (*Reference, error) {
	ref, ok := r.refs[membershipNumber][email]
	if !ok {
		return nil, apperr.NotFoundf("reference %s/%s", membershipNumber, email)
	}
	return ref, nil
}

func (r *fakeRepo) ListReferences(ctx context.Context, membershipNumber string) ([]Reference, error) {
	var out []Reference
	for _, ref := range r.refs[membershipNumber] {
		out = append(out, *ref)
	}
	return out, nil
}

func (r *fakeRepo) UpdateReference(ctx context.Context, ref *Reference) error {
	r.refs[ref.MembershipNumber][ref.ReferenceEmail] = ref
	return nil
}

type fakeRegistry struct {
	members map[string]*member.Member
}

func (r *fakeRegistry) GetByMembershipNumber(ctx context.Context, membershipNumber string) (*member.Member, error) {
	m, ok := r.members[membershipNumber]
	if !ok {
		return nil, apperr.NotFoundf("member %s not found", membershipNumber)
	}
	return m, nil
}

func (r *fakeRegistry) Create(ctx context.Context, m *member.Member) error {
	if _, ok := r.members[m.MembershipNumber]; ok {
		return apperr.Conflictf("member %s already exists", m.MembershipNumber)
	}
	r.members[m.MembershipNumber] = m
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		PortalDomain:    "portal.example.org",
		MembersEmail:    "members@example.org",
		MembershipYears: 1,
	}
}

func newTestService() (Service, *fakeRepo, *fakeRegistry) {
	repo := newFakeRepo()
	registry := &fakeRegistry{members: map[string]*member.Member{}}
	return NewService(repo, registry, nil, testConfig()), repo, registry
}

func submitTestApplication(t *testing.T, svc Service, membershipNumber string) {
	t.Helper()
	req := validSubmitRequest()
	require.NoError(t, svc.Submit(context.Background(), membershipNumber, req, "127.0.0.1"))
}

func TestSubmitStoresApplicationAndReferences(t *testing.T) {
	svc, repo, _ := newTestService()

	submitTestApplication(t, svc, "0012345")

	// Leading zeros are stripped before storage
	app, err := repo.Get(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "Robin", app.FirstName)
	assert.Equal(t, "+447700900123", app.Telephone)

	refs, err := repo.ListReferences(context.Background(), "12345")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	for _, ref := range refs {
		assert.NotEmpty(t, ref.TokenHash)
		assert.False(t, ref.Submitted())
	}
}

func TestSubmitRejectsDuplicateApplication(t *testing.T) {
	svc, _, _ := newTestService()
	submitTestApplication(t, svc, "12345")

	err := svc.Submit(context.Background(), "12345", validSubmitRequest(), "")
	require.Error(t, err)

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "We have already received an application for this membership number")
}

func TestSubmitRejectsExistingMember(t *testing.T) {
	svc, _, registry := newTestService()
	registry.members["12345"] = &member.Member{MembershipNumber: "12345"}

	err := svc.Submit(context.Background(), "12345", validSubmitRequest(), "")
	require.Error(t, err)

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "This membership number belongs to an existing member or the KSWP")
}

func TestSubmitReferenceRejectsBadToken(t *testing.T) {
	svc, repo, _ := newTestService()
	submitTestApplication(t, svc, "12345")

	req := validReferenceRequest()
	req.Email = "marian@example.com"
	req.Token = "not-the-token"

	err := svc.SubmitReference(context.Background(), "12345", req, "")
	require.Error(t, err)

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "Reference token is not valid")

	ref, err := repo.GetReference(context.Background(), "12345", "marian@example.com")
	require.NoError(t, err)
	assert.False(t, ref.Submitted())
}

func TestSubmitReferenceAcceptsValidToken(t *testing.T) {
	svc, repo, _ := newTestService()
	submitTestApplication(t, svc, "12345")

	// Replace the stored hash with one for a token we know
	ref, err := repo.GetReference(context.Background(), "12345", "marian@example.com")
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("known-token"), bcrypt.MinCost)
	require.NoError(t, err)
	ref.TokenHash = string(hash)

	req := validReferenceRequest()
	req.Email = "marian@example.com"
	req.Token = "known-token"

	require.NoError(t, svc.SubmitReference(context.Background(), "12345", req, ""))

	ref, err = repo.GetReference(context.Background(), "12345", "marian@example.com")
	require.NoError(t, err)
	assert.True(t, ref.Submitted())
	assert.Equal(t, RelationshipScouting, ref.Relationship)

	// A second submission from the same referee is refused
	err = svc.SubmitReference(context.Background(), "12345", req, "")
	require.Error(t, err)
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "We have already received a reference from this e-mail address for this application.")
}

func TestGetStatusRequiresMatchingDateOfBirth(t *testing.T) {
	svc, _, _ := newTestService()
	submitTestApplication(t, svc, "12345")

	_, err := svc.GetStatus(context.Background(), "12345", "1999-01-01")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	status, err := svc.GetStatus(context.Background(), "12345", "2000-06-01")
	require.NoError(t, err)
	assert.Equal(t, "12345", status.MembershipNumber)
	assert.Nil(t, status.Scouting)
	assert.Nil(t, status.NonScouting)
	assert.Nil(t, status.FiveYears)
}

func TestGetStatusReportsReferenceProgress(t *testing.T) {
	svc, repo, _ := newTestService()
	submitTestApplication(t, svc, "12345")

	now := time.Now()
	ref, err := repo.GetReference(context.Background(), "12345", "marian@example.com")
	require.NoError(t, err)
	ref.Relationship = RelationshipScouting
	ref.HowLong = "moreThan5"
	ref.SubmittedAt = &now
	ref.Accepted = true

	status, err := svc.GetStatus(context.Background(), "12345", "2000-06-01")
	require.NoError(t, err)

	require.NotNil(t, status.Scouting)
	assert.Equal(t, "ACCEPTED", *status.Scouting)
	require.NotNil(t, status.FiveYears)
	assert.Equal(t, "ACCEPTED", *status.FiveYears)
	assert.Nil(t, status.NonScouting)
}

func TestApproveCreatesMemberAndRemovesApplication(t *testing.T) {
	svc, repo, registry := newTestService()
	submitTestApplication(t, svc, "12345")

	m, err := svc.Approve(context.Background(), "12345", "100001", "")
	require.NoError(t, err)

	assert.Equal(t, "12345", m.MembershipNumber)
	assert.Equal(t, member.StatusActive, m.Status)
	assert.True(t, m.QSAReceived)
	assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), m.MembershipExpires, time.Minute)

	_, ok := registry.members["12345"]
	assert.True(t, ok)

	_, err = repo.Get(context.Background(), "12345")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestApproveMissingApplication(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Approve(context.Background(), "99999", "100001", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRejectRemovesApplication(t *testing.T) {
	svc, repo, _ := newTestService()
	submitTestApplication(t, svc, "12345")

	require.NoError(t, svc.Reject(context.Background(), "12345", "100001", ""))

	_, err := repo.Get(context.Background(), "12345")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReplaceMembershipNumberUnsupported(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.ReplaceMembershipNumber(context.Background(), "12345", "54321")
	assert.ErrorIs(t, err, ErrReplaceUnsupported)
}

func TestReportAggregatesPostcodes(t *testing.T) {
	svc, _, _ := newTestService()
	submitTestApplication(t, svc, "12345")

	other := validSubmitRequest()
	other.Email = "will@example.com"
	other.SREmail = "sr2@example.com"
	other.NSREmail = "nsr2@example.com"
	other.Postcode = "SW1A 1AA"
	require.NoError(t, svc.Submit(context.Background(), "23456", other, ""))

	report, err := svc.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Count)
	assert.Equal(t, 1, report.Postcodes["NG"])
	assert.Equal(t, 1, report.Postcodes["SW"])
	assert.Equal(t, 0, report.OldestDays)
	assert.Equal(t, 0, report.NewestDays)
}

func validReferenceRequest() SubmitReferenceRequest {
	return SubmitReferenceRequest{
		Name:               "Maid Marian",
		Relationship:       RelationshipScouting,
		CapacityKnown:      "Group Scout Leader",
		HowLong:            "moreThan5",
		NotConsidered:      "no",
		StatementOfSupport: "A thoroughly dependable volunteer.",
		Maturity:           5,
		Responsibility:     4,
		SelfMotivation:     5,
		MotivateOthers:     4,
		Commitment:         5,
		Trustworthiness:    5,
		WorkWithAdults:     4,
		RespectForOthers:   5,
	}
}
