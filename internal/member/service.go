package member

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/kswpuk/portal-api/internal/apperr"
	"github.com/kswpuk/portal-api/internal/auditlog"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// UK numbers in national or E.164 form
	telephoneRe = regexp.MustCompile(`^(\+44|0)\d{9,10}$`)
	postcodeRe  = regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?\d[A-Z]{2}$`)
)

// Lookup is the read-only view of the membership roll consumed by the
// allocation core.
type Lookup interface {
	GetByMembershipNumber(ctx context.Context, membershipNumber string) (*Member, error)
}

type Service interface {
	Lookup
	List(ctx context.Context, includeEmail bool) ([]MemberSummary, error)
	Update(ctx context.Context, membershipNumber string, req UpdateMemberRequest, actor, ip string) (*Member, error)
	Suspend(ctx context.Context, membershipNumber string, suspended bool, actor, ip string) error
	Delete(ctx context.Context, membershipNumber string, actor, ip string) error
	Compare(ctx context.Context, compassNumbers []string) ([]CompareResult, error)
	Report(ctx context.Context) (*MemberReport, error)
	AwardCandidates(ctx context.Context, history AllocationHistory) ([]AwardCandidate, error)
}

// AllocationHistory gives the award screen access to a member's event record
// without importing the allocation package.
type AllocationHistory interface {
	EventRecords(ctx context.Context, membershipNumber string, since time.Time) (attended, noShows, dropOuts int, err error)
}

type service struct {
	repo  Repository
	audit auditlog.Service
}

func NewService(repo Repository, audit auditlog.Service) Service {
	return &service{repo: repo, audit: audit}
}

func (s *service) GetByMembershipNumber(ctx context.Context, membershipNumber string) (*Member, error) {
	return s.repo.GetByMembershipNumber(ctx, membershipNumber)
}

// List returns the membership roll. E-mail addresses are only included for
// committee callers.
func (s *service) List(ctx context.Context, includeEmail bool) ([]MemberSummary, error) {
	members, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]MemberSummary, 0, len(members))
	for _, m := range members {
		summary := MemberSummary{
			MembershipNumber: m.MembershipNumber,
			FirstName:        m.FirstName,
			PreferredName:    m.PreferredName,
			Surname:          m.Surname,
			Role:             m.Role,
			Status:           m.Status,
		}
		if includeEmail {
			summary.Email = m.Email
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Update validates and applies a member's contact details.
func (s *service) Update(ctx context.Context, membershipNumber string, req UpdateMemberRequest, actor, ip string) (*Member, error) {
	if errs := validateUpdate(&req); len(errs) > 0 {
		return nil, apperr.Validation(errs...)
	}

	m, err := s.repo.GetByMembershipNumber(ctx, membershipNumber)
	if err != nil {
		return nil, err
	}

	m.FirstName = req.FirstName
	m.Surname = req.Surname
	m.PreferredName = strings.TrimSpace(req.PreferredName)
	m.Email = req.Email
	m.Telephone = req.Telephone
	m.Address = req.Address
	m.Postcode = req.Postcode
	m.EmergencyContactName = req.EmergencyContactName
	m.EmergencyContactTelephone = req.EmergencyContactTelephone
	m.MedicalInformation = strings.TrimSpace(req.MedicalInformation)
	m.DietaryRequirements = strings.TrimSpace(req.DietaryRequirements)

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, membershipNumber, auditlog.ActionMemberUpdated, nil, ip)
	log.Printf("✅ Details updated for %s", membershipNumber)
	return m, nil
}

func (s *service) Suspend(ctx context.Context, membershipNumber string, suspended bool, actor, ip string) error {
	if err := s.repo.SetSuspended(ctx, membershipNumber, suspended); err != nil {
		return err
	}
	s.logAudit(ctx, actor, membershipNumber, auditlog.ActionMemberSuspended, map[string]interface{}{"suspended": suspended}, ip)
	return nil
}

func (s *service) Delete(ctx context.Context, membershipNumber string, actor, ip string) error {
	if err := s.repo.Delete(ctx, membershipNumber); err != nil {
		return err
	}
	s.logAudit(ctx, actor, membershipNumber, auditlog.ActionMemberDeleted, nil, ip)
	return nil
}

// Compare reconciles the portal roll against the list exported from the
// national membership database. Each membership number gets the action needed
// to bring the two into line.
func (s *service) Compare(ctx context.Context, compassNumbers []string) ([]CompareResult, error) {
	if len(compassNumbers) == 0 {
		return nil, apperr.Validation("Member list can not be empty")
	}

	portalMembers, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	inCompass := make(map[string]bool, len(compassNumbers))
	combined := make(map[string]bool, len(compassNumbers))
	for _, n := range compassNumbers {
		inCompass[n] = true
		combined[n] = true
	}

	portal := make(map[string]*Member, len(portalMembers))
	for i := range portalMembers {
		m := &portalMembers[i]
		portal[m.MembershipNumber] = m
		combined[m.MembershipNumber] = true
	}

	results := make([]CompareResult, 0, len(combined))
	for n := range combined {
		result := CompareResult{MembershipNumber: n}

		if m, ok := portal[n]; ok {
			name := m.DisplayName()
			result.Name = &name

			switch {
			case m.Active() == inCompass[n]:
				result.Action = CompareNone
			case m.Active():
				result.Action = CompareAddToCompass
			default:
				result.Action = CompareRemoveFromCompass
			}
		} else {
			result.Action = CompareRemoveFromCompass
		}

		results = append(results, result)
	}
	return results, nil
}

// Report summarises the roll by status, years of membership and age band.
func (s *service) Report(ctx context.Context) (*MemberReport, error) {
	members, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &MemberReport{}
	report.Counts.Status = make(map[string]int)
	report.Counts.Time = make(map[int]int)
	report.Counts.Age = map[string]int{
		"UNDER_18": 0, "18_25": 0, "25_35": 0, "35_45": 0,
		"45_55": 0, "55_65": 0, "OVER_65": 0,
	}

	today := time.Now()
	for _, m := range members {
		report.Counts.Status[m.Status]++
		report.Counts.Time[wholeYears(m.JoinDate, today)]++
		report.Counts.Age[ageBand(wholeYears(m.DateOfBirth, today))]++
	}
	return report, nil
}

// AwardCandidates screens active members for good service award consideration.
// The bar is five years of membership, no no-shows, at most three drop outs,
// and regular attendance (at least once every three months on average) over
// those five years.
func (s *service) AwardCandidates(ctx context.Context, history AllocationHistory) ([]AwardCandidate, error) {
	members, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	today := time.Now()
	fiveYearsAgo := today.AddDate(-5, 0, 0)

	var candidates []AwardCandidate
	for _, m := range members {
		if wholeYears(m.JoinDate, today) < 5 {
			continue
		}

		attended, noShows, dropOuts, err := history.EventRecords(ctx, m.MembershipNumber, fiveYearsAgo)
		if err != nil {
			log.Printf("⚠️ Skipping %s in award screen, event record unavailable: %v", m.MembershipNumber, err)
			continue
		}

		if noShows > 0 {
			log.Printf("Rejecting %s, no show at %d event(s) over the past 5 years", m.MembershipNumber, noShows)
			continue
		}
		if dropOuts > 3 {
			log.Printf("Rejecting %s, dropped out of %d event(s) over the past 5 years", m.MembershipNumber, dropOuts)
			continue
		}
		if attended < 20 {
			log.Printf("Rejecting %s, only attended %d event(s) over the past 5 years", m.MembershipNumber, attended)
			continue
		}

		candidates = append(candidates, AwardCandidate{
			MembershipNumber: m.MembershipNumber,
			FirstName:        m.FirstName,
			Surname:          m.Surname,
		})
	}

	log.Printf("%d members should be considered for awards", len(candidates))
	return candidates, nil
}

func (s *service) logAudit(ctx context.Context, actor, target, action string, details map[string]interface{}, ip string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogAction(ctx, &actor, &target, action, details, ip, "success"); err != nil {
		log.Printf("⚠️ Failed to write audit log for %s: %v", action, err)
	}
}

func validateUpdate(req *UpdateMemberRequest) []string {
	var errs []string

	req.FirstName = strings.TrimSpace(req.FirstName)
	if req.FirstName == "" {
		errs = append(errs, "First name cannot be empty")
	}

	req.Surname = strings.TrimSpace(req.Surname)
	if req.Surname == "" {
		errs = append(errs, "Surname cannot be empty")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		errs = append(errs, "E-mail address cannot be empty")
	} else if !emailRe.MatchString(req.Email) {
		errs = append(errs, "E-mail address is not valid")
	}

	var err error
	if req.Telephone, err = normalizeTelephone(req.Telephone); err != nil {
		errs = append(errs, fmt.Sprintf("Telephone number is not valid: %v", err))
	}

	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		errs = append(errs, "Address cannot be empty")
	}

	if req.Postcode, err = normalizePostcode(req.Postcode); err != nil {
		errs = append(errs, "Postcode is not valid")
	}

	req.EmergencyContactName = strings.TrimSpace(req.EmergencyContactName)
	if req.EmergencyContactName == "" {
		errs = append(errs, "Emergency contact name cannot be empty")
	}

	if req.EmergencyContactTelephone, err = normalizeTelephone(req.EmergencyContactTelephone); err != nil {
		errs = append(errs, fmt.Sprintf("Emergency contact telephone number is not valid: %v", err))
	}

	return errs
}

// normalizeTelephone formats a UK number as E.164.
func normalizeTelephone(tel string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(tel))
	if cleaned == "" {
		return "", fmt.Errorf("cannot be empty")
	}
	if !telephoneRe.MatchString(cleaned) {
		return "", fmt.Errorf("not a recognised UK number")
	}
	if strings.HasPrefix(cleaned, "0") {
		cleaned = "+44" + cleaned[1:]
	}
	return cleaned, nil
}

// normalizePostcode uppercases and reinstates the single space before the
// inward code.
func normalizePostcode(postcode string) (string, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postcode), " ", ""))
	if cleaned == "" {
		return "", fmt.Errorf("cannot be empty")
	}
	if !postcodeRe.MatchString(cleaned) {
		return "", fmt.Errorf("not a valid UK postcode")
	}
	return cleaned[:len(cleaned)-3] + " " + cleaned[len(cleaned)-3:], nil
}

// wholeYears counts completed years between then and today.
func wholeYears(then, today time.Time) int {
	years := today.Year() - then.Year()
	if today.Month() < then.Month() || (today.Month() == then.Month() && today.Day() < then.Day()) {
		years--
	}
	return years
}

func ageBand(age int) string {
	switch {
	case age < 18:
		return "UNDER_18"
	case age < 25:
		return "18_25"
	case age < 35:
		return "25_35"
	case age < 45:
		return "35_45"
	case age < 55:
		return "45_55"
	case age < 65:
		return "55_65"
	default:
		return "OVER_65"
	}
}
