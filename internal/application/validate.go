package application

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// UK numbers in national or E.164 form
	telephoneRe = regexp.MustCompile(`^(\+44|0)\d{9,10}$`)
	postcodeRe  = regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?\d[A-Z]{2}$`)
	qsaRe       = regexp.MustCompile(`^(19|20)[0-9]{2}-(0[1-9]|1[0-2])$`)
	// Postcode area: the leading letters of the outward code
	areaRe = regexp.MustCompile(`^[A-Z]{1,2}`)
)

// validatedApplication carries the normalized fields produced by validation
type validatedApplication struct {
	DateOfBirth time.Time
	Telephone   string
	Postcode    string
}

// validateApplication checks and normalizes an intake payload in place,
// returning the parsed values and all validation messages found.
func validateApplication(req *SubmitApplicationRequest, now time.Time) (*validatedApplication, []string) {
	var errs []string
	out := &validatedApplication{}

	req.FirstName = strings.TrimSpace(req.FirstName)
	if req.FirstName == "" {
		errs = append(errs, "First name cannot be empty")
	}

	req.Surname = strings.TrimSpace(req.Surname)
	if req.Surname == "" {
		errs = append(errs, "Surname cannot be empty")
	}

	if strings.TrimSpace(req.DateOfBirth) == "" {
		errs = append(errs, "Date of Birth cannot be empty")
	} else if dob, err := time.Parse("2006-01-02", req.DateOfBirth); err != nil {
		errs = append(errs, "Date of Birth is not a valid date")
	} else {
		out.DateOfBirth = dob
		if dob.After(now.AddDate(-18, 0, 0)) {
			errs = append(errs, "You must be at least 18 to join the KSWP")
		}
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		errs = append(errs, "E-mail address cannot be empty")
	} else if !emailRe.MatchString(req.Email) {
		errs = append(errs, "E-mail address is not valid")
	}

	if tel, err := normalizeTelephone(req.Telephone); err != nil {
		errs = append(errs, fmt.Sprintf("Telephone number %s", err))
	} else {
		out.Telephone = tel
	}

	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		errs = append(errs, "Address cannot be empty")
	}

	if postcode, err := normalizePostcode(req.Postcode); err != nil {
		errs = append(errs, fmt.Sprintf("Postcode %s", err))
	} else {
		out.Postcode = postcode
	}

	req.QSAReceived = strings.TrimSpace(req.QSAReceived)
	if req.QSAReceived == "" {
		errs = append(errs, "Month you received your King's Scout or Queen's Scout Award cannot be empty")
	} else if !qsaRe.MatchString(req.QSAReceived) {
		errs = append(errs, "Month you received your King's Scout or Queen's Scout Award is not valid")
	}

	req.SRName = strings.TrimSpace(req.SRName)
	if req.SRName == "" {
		errs = append(errs, "Scout reference name cannot be empty")
	}

	req.SREmail = strings.ToLower(strings.TrimSpace(req.SREmail))
	if req.SREmail == "" {
		errs = append(errs, "Scout reference e-mail address cannot be empty")
	} else if !emailRe.MatchString(req.SREmail) {
		errs = append(errs, "Scout reference e-mail address is not valid")
	}

	req.NSRName = strings.TrimSpace(req.NSRName)
	if req.NSRName == "" {
		errs = append(errs, "Non-Scout reference name cannot be empty")
	}

	req.NSREmail = strings.ToLower(strings.TrimSpace(req.NSREmail))
	if req.NSREmail == "" {
		errs = append(errs, "Non-Scout reference e-mail address cannot be empty")
	} else if !emailRe.MatchString(req.NSREmail) {
		errs = append(errs, "Non-Scout reference e-mail address is not valid")
	}

	if req.SREmail != "" && req.SREmail == req.Email {
		errs = append(errs, "Scout reference cannot use your e-mail address")
	}
	if req.NSREmail != "" && req.NSREmail == req.Email {
		errs = append(errs, "Non-Scout reference cannot use your e-mail address")
	}
	if req.SREmail != "" && req.SREmail == req.NSREmail {
		errs = append(errs, "Scout reference and non-Scout reference cannot use the same e-mail address")
	}

	return out, errs
}

// validateReference checks a referee submission and converts notConsidered to
// a boolean. Skill scores use the referee form's 1 to 5 scale.
func validateReference(req *SubmitReferenceRequest) (notConsidered bool, errs []string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		errs = append(errs, "Name cannot be empty")
	}

	req.Relationship = strings.TrimSpace(req.Relationship)
	if req.Relationship != RelationshipScouting && req.Relationship != RelationshipNonScouting {
		errs = append(errs, "Relationship is not an expected value")
	}

	req.CapacityKnown = strings.TrimSpace(req.CapacityKnown)
	if req.CapacityKnown == "" {
		errs = append(errs, "Capacity Known cannot be empty")
	}

	req.HowLong = strings.TrimSpace(req.HowLong)
	if req.HowLong != "lessThan5" && req.HowLong != "moreThan5" {
		errs = append(errs, "How Long is not an expected value")
	}

	switch strings.ToLower(strings.TrimSpace(req.NotConsidered)) {
	case "yes":
		notConsidered = true
	case "no":
		notConsidered = false
	default:
		errs = append(errs, "Not Considered is not an expected value")
	}

	req.StatementOfSupport = strings.TrimSpace(req.StatementOfSupport)
	if req.StatementOfSupport == "" {
		errs = append(errs, "Statement of Support cannot be empty")
	}

	scores := []struct {
		label string
		value int
	}{
		{"Maturity", req.Maturity},
		{"Responsibility", req.Responsibility},
		{"Self-motivation", req.SelfMotivation},
		{"Ability to Motivate Others", req.MotivateOthers},
		{"Commitment", req.Commitment},
		{"Trustworthiness", req.Trustworthiness},
		{"Ability to Work with Adults", req.WorkWithAdults},
		{"Respect for Others", req.RespectForOthers},
	}
	for _, s := range scores {
		if s.value < 1 || s.value > 5 {
			errs = append(errs, fmt.Sprintf("%s must be between 1 and 5", s.label))
		}
	}

	return notConsidered, errs
}

func normalizeTelephone(tel string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(tel))
	if cleaned == "" {
		return "", fmt.Errorf("cannot be empty")
	}
	if !telephoneRe.MatchString(cleaned) {
		return "", fmt.Errorf("is not valid")
	}
	if strings.HasPrefix(cleaned, "0") {
		cleaned = "+44" + cleaned[1:]
	}
	return cleaned, nil
}

func normalizePostcode(postcode string) (string, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postcode), " ", ""))
	if cleaned == "" {
		return "", fmt.Errorf("cannot be empty")
	}
	if !postcodeRe.MatchString(cleaned) {
		return "", fmt.Errorf("is not valid")
	}
	return cleaned[:len(cleaned)-3] + " " + cleaned[len(cleaned)-3:], nil
}

// postcodeArea extracts the letter prefix of the outward code, used by the
// applications report to show geographic spread.
func postcodeArea(postcode string) string {
	area := areaRe.FindString(strings.ToUpper(strings.TrimSpace(postcode)))
	if area == "" {
		return "UNKNOWN"
	}
	return area
}
