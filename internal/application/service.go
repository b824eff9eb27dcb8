package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kswpuk/portal-api/config"
	"github.com/kswpuk/portal-api/internal/apperr"
	"github.com/kswpuk/portal-api/internal/auditlog"
	"github.com/kswpuk/portal-api/internal/member"
	"github.com/kswpuk/portal-api/utils"
)

// ErrReplaceUnsupported is returned for membership number replacement, which
// is not implemented: an in-flight application may already have references
// keyed by the old number.
var ErrReplaceUnsupported = errors.New("replacing the membership number of an application is not supported")

// MemberRegistry is the slice of the membership roll the intake flow needs:
// duplicate detection on submit and record creation on approval.
type MemberRegistry interface {
	GetByMembershipNumber(ctx context.Context, membershipNumber string) (*member.Member, error)
	Create(ctx context.Context, m *member.Member) error
}

type Service interface {
	Submit(ctx context.Context, membershipNumber string, req SubmitApplicationRequest, ip string) error
	List(ctx context.Context) ([]Application, error)
	GetStatus(ctx context.Context, membershipNumber, dateOfBirth string) (*Status, error)
	SubmitReference(ctx context.Context, membershipNumber string, req SubmitReferenceRequest, ip string) error
	AcceptReference(ctx context.Context, membershipNumber, email, caller, ip string) error
	Approve(ctx context.Context, membershipNumber, caller, ip string) (*member.Member, error)
	Reject(ctx context.Context, membershipNumber, caller, ip string) error
	ReplaceMembershipNumber(ctx context.Context, oldNumber, newNumber string) error
	Report(ctx context.Context) (*Report, error)
}

type service struct {
	repo    Repository
	members MemberRegistry
	audit   auditlog.Service
	cfg     *config.Config
}

func NewService(repo Repository, members MemberRegistry, audit auditlog.Service, cfg *config.Config) Service {
	return &service{repo: repo, members: members, audit: audit, cfg: cfg}
}

func (s *service) Submit(ctx context.Context, membershipNumber string, req SubmitApplicationRequest, ip string) error {
	membershipNumber, err := normalizeMembershipNumber(membershipNumber)
	if err != nil {
		return err
	}

	// A number already known to us cannot apply again
	exists, err := s.repo.Exists(ctx, membershipNumber)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Validation("We have already received an application for this membership number")
	}

	if _, err := s.members.GetByMembershipNumber(ctx, membershipNumber); err == nil {
		return apperr.Validation("This membership number belongs to an existing member or the KSWP")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	validated, errs := validateApplication(&req, time.Now())
	if len(errs) > 0 {
		log.Printf("⚠️ Validation of application %s failed: %d errors", membershipNumber, len(errs))
		return apperr.Validation(errs...)
	}

	app := &Application{
		MembershipNumber: membershipNumber,
		FirstName:        req.FirstName,
		Surname:          req.Surname,
		DateOfBirth:      validated.DateOfBirth,
		Email:            req.Email,
		Telephone:        validated.Telephone,
		Address:          req.Address,
		Postcode:         validated.Postcode,
		QSAReceived:      req.QSAReceived,
	}

	// Each referee gets a one-time token; only its hash is stored
	srToken := uuid.NewString()
	nsrToken := uuid.NewString()

	srRef, err := buildReference(membershipNumber, req.SRName, req.SREmail, srToken)
	if err != nil {
		return err
	}
	nsrRef, err := buildReference(membershipNumber, req.NSRName, req.NSREmail, nsrToken)
	if err != nil {
		return err
	}

	if err := s.repo.Create(ctx, app, []Reference{*srRef, *nsrRef}); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return apperr.Validation("We have already received an application for this membership number")
		}
		return err
	}

	s.emailReferee(membershipNumber, app, srRef, srToken)
	s.emailReferee(membershipNumber, app, nsrRef, nsrToken)

	if s.audit != nil {
		target := membershipNumber
		_ = s.audit.LogAction(ctx, nil, &target, auditlog.ActionApplicationSubmitted,
			map[string]interface{}{"postcode": postcodeArea(app.Postcode)}, ip, "success")
	}

	log.Printf("✅ Application submitted for %s", membershipNumber)
	return nil
}

func (s *service) List(ctx context.Context) ([]Application, error) {
	return s.repo.List(ctx)
}

// GetStatus reports reference progress. The date of birth must match the
// application on file; a mismatch gets the same response as a missing
// application so the endpoint does not reveal which numbers have applied.
func (s *service) GetStatus(ctx context.Context, membershipNumber, dateOfBirth string) (*Status, error) {
	app, err := s.repo.Get(ctx, membershipNumber)
	if err != nil {
		return nil, err
	}

	if app.DateOfBirth.Format("2006-01-02") != dateOfBirth {
		return nil, apperr.NotFoundf("application %s", membershipNumber)
	}

	refs, err := s.repo.ListReferences(ctx, membershipNumber)
	if err != nil {
		return nil, err
	}

	status := &Status{
		MembershipNumber: membershipNumber,
		SubmittedAt:      app.SubmittedAt.Unix(),
	}
	for i := range refs {
		ref := &refs[i]
		if !ref.Submitted() {
			continue
		}

		switch ref.Relationship {
		case RelationshipScouting:
			status.Scouting = mergeRefStatus(status.Scouting, ref.Accepted)
		case RelationshipNonScouting:
			status.NonScouting = mergeRefStatus(status.NonScouting, ref.Accepted)
		}

		if ref.HowLong == "moreThan5" {
			status.FiveYears = mergeRefStatus(status.FiveYears, ref.Accepted)
		}
	}

	return status, nil
}

func (s *service) SubmitReference(ctx context.Context, membershipNumber string, req SubmitReferenceRequest, ip string) error {
	membershipNumber, err := normalizeMembershipNumber(membershipNumber)
	if err != nil {
		return err
	}

	if _, err := s.repo.Get(ctx, membershipNumber); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFoundf("we have not received an application for this membership number")
		}
		return err
	}

	ref, err := s.repo.GetReference(ctx, membershipNumber, normalizeEmail(req.Email))
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(ref.TokenHash), []byte(req.Token)) != nil {
		return apperr.Validation("Reference token is not valid")
	}

	if ref.Submitted() {
		return apperr.Validation("We have already received a reference from this e-mail address for this application.")
	}

	notConsidered, errs := validateReference(&req)
	if len(errs) > 0 {
		log.Printf("⚠️ Validation of reference for %s failed: %d errors", membershipNumber, len(errs))
		return apperr.Validation(errs...)
	}

	now := time.Now()
	ref.ReferenceName = req.Name
	ref.Relationship = req.Relationship
	ref.CapacityKnown = req.CapacityKnown
	ref.HowLong = req.HowLong
	ref.NotConsidered = notConsidered
	ref.StatementOfSupport = req.StatementOfSupport
	ref.Maturity = req.Maturity
	ref.Responsibility = req.Responsibility
	ref.SelfMotivation = req.SelfMotivation
	ref.MotivateOthers = req.MotivateOthers
	ref.Commitment = req.Commitment
	ref.Trustworthiness = req.Trustworthiness
	ref.WorkWithAdults = req.WorkWithAdults
	ref.RespectForOthers = req.RespectForOthers
	ref.SubmittedAt = &now

	if err := s.repo.UpdateReference(ctx, ref); err != nil {
		return err
	}

	if s.audit != nil {
		target := membershipNumber
		_ = s.audit.LogAction(ctx, nil, &target, auditlog.ActionReferenceSubmitted,
			map[string]interface{}{"relationship": ref.Relationship}, ip, "success")
	}

	log.Printf("✅ Reference received for %s (%s)", membershipNumber, ref.Relationship)
	return nil
}

func (s *service) AcceptReference(ctx context.Context, membershipNumber, email, caller, ip string) error {
	ref, err := s.repo.GetReference(ctx, membershipNumber, normalizeEmail(email))
	if err != nil {
		return err
	}
	if !ref.Submitted() {
		return apperr.Validation("This reference has not been submitted yet")
	}

	ref.Accepted = true
	if err := s.repo.UpdateReference(ctx, ref); err != nil {
		return err
	}

	if s.audit != nil {
		target := membershipNumber
		_ = s.audit.LogAction(ctx, &caller, &target, auditlog.ActionReferenceSubmitted,
			map[string]interface{}{"accepted": true, "relationship": ref.Relationship}, ip, "success")
	}
	return nil
}

// Approve turns an application into a member record and removes the
// application. The new membership runs for the configured term from today.
func (s *service) Approve(ctx context.Context, membershipNumber, caller, ip string) (*member.Member, error) {
	app, err := s.repo.Get(ctx, membershipNumber)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFoundf("we have not received an application for this membership number")
		}
		return nil, err
	}

	today := time.Now()
	m := &member.Member{
		MembershipNumber:  app.MembershipNumber,
		FirstName:         app.FirstName,
		Surname:           app.Surname,
		DateOfBirth:       app.DateOfBirth,
		JoinDate:          today,
		Email:             app.Email,
		Telephone:         app.Telephone,
		Address:           app.Address,
		Postcode:          app.Postcode,
		Status:            member.StatusActive,
		MembershipExpires: today.AddDate(s.cfg.MembershipYears, 0, 0),
		QSAReceived:       true,
	}

	if err := s.members.Create(ctx, m); err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, membershipNumber); err != nil {
		// The member exists; the leftover application only needs a manual tidy
		log.Printf("⚠️ Approved %s but could not remove the application: %v", membershipNumber, err)
	}

	if s.audit != nil {
		target := membershipNumber
		_ = s.audit.LogAction(ctx, &caller, &target, auditlog.ActionApplicationApproved,
			map[string]interface{}{"approvalDelaySeconds": int(today.Sub(app.SubmittedAt).Seconds())}, ip, "success")
	}

	log.Printf("✅ Application approved for %s", membershipNumber)
	return m, nil
}

func (s *service) Reject(ctx context.Context, membershipNumber, caller, ip string) error {
	if err := s.repo.Delete(ctx, membershipNumber); err != nil {
		return err
	}

	if s.audit != nil {
		target := membershipNumber
		_ = s.audit.LogAction(ctx, &caller, &target, auditlog.ActionApplicationDeleted, nil, ip, "success")
	}

	log.Printf("Application for %s rejected and removed", membershipNumber)
	return nil
}

func (s *service) ReplaceMembershipNumber(ctx context.Context, oldNumber, newNumber string) error {
	return ErrReplaceUnsupported
}

func (s *service) Report(ctx context.Context) (*Report, error) {
	apps, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Count:     len(apps),
		Postcodes: map[string]int{},
	}
	if len(apps) == 0 {
		return report, nil
	}

	oldest := apps[0].SubmittedAt
	newest := apps[0].SubmittedAt
	for _, app := range apps {
		report.Postcodes[postcodeArea(app.Postcode)]++
		if app.SubmittedAt.Before(oldest) {
			oldest = app.SubmittedAt
		}
		if app.SubmittedAt.After(newest) {
			newest = app.SubmittedAt
		}
	}

	today := time.Now()
	report.Oldest = oldest.Format("2006-01-02")
	report.OldestDays = int(today.Sub(oldest).Hours() / 24)
	report.Newest = newest.Format("2006-01-02")
	report.NewestDays = int(today.Sub(newest).Hours() / 24)

	return report, nil
}

// emailReferee mails the reference request with the one-time token link.
// Failure to send is logged and followed up manually, never fatal.
func (s *service) emailReferee(membershipNumber string, app *Application, ref *Reference, token string) {
	link := fmt.Sprintf("https://%s/applications/%s/references?email=%s&token=%s",
		s.cfg.PortalDomain, membershipNumber, url.QueryEscape(ref.ReferenceEmail), token)

	subject := fmt.Sprintf("Reference request for %s %s", app.FirstName, app.Surname)
	body := fmt.Sprintf(`Hi %s,

%s %s has applied to join the KSWP, and has given your name as a referee.

Please complete the reference form at the link below:

%s

If you have any questions, please reply to this e-mail.

The KSWP Portal`, ref.ReferenceName, app.FirstName, app.Surname, link)

	if err := utils.SendEmail(ref.ReferenceEmail, s.cfg.MembersEmail, subject, body); err != nil {
		log.Printf("❌ Unable to send reference request to %s for %s: %v", ref.ReferenceEmail, membershipNumber, err)
	}
}

func buildReference(membershipNumber, name, email, token string) (*Reference, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Collaborator("hash reference token", err)
	}
	return &Reference{
		MembershipNumber: membershipNumber,
		ReferenceEmail:   email,
		ReferenceName:    name,
		TokenHash:        string(hash),
	}, nil
}

func mergeRefStatus(current *string, accepted bool) *string {
	acceptedStr := "ACCEPTED"
	submittedStr := "SUBMITTED"
	if accepted {
		return &acceptedStr
	}
	if current != nil && *current == acceptedStr {
		return current
	}
	return &submittedStr
}

// normalizeMembershipNumber strips whitespace and leading zeros so 0012345
// and 12345 hit the same application.
func normalizeMembershipNumber(id string) (string, error) {
	trimmed := strings.TrimLeft(strings.TrimSpace(id), "0")
	if trimmed == "" {
		return "", apperr.Validation("Membership number cannot be empty")
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return "", apperr.Validation("Membership number must be a number")
		}
	}
	return trimmed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
