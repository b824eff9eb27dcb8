package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validateNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func validSubmitRequest() SubmitApplicationRequest {
	return SubmitApplicationRequest{
		FirstName:   "Robin",
		Surname:     "Hood",
		DateOfBirth: "2000-06-01",
		Email:       "robin@example.com",
		Telephone:   "07700 900123",
		Address:     "1 Forest Lane, Nottingham",
		Postcode:    "NG1 6HX",
		QSAReceived: "2019-07",
		SRName:      "Maid Marian",
		SREmail:     "marian@example.com",
		NSRName:     "Friar Tuck",
		NSREmail:    "tuck@example.com",
	}
}

func TestValidateApplicationValid(t *testing.T) {
	req := validSubmitRequest()

	out, errs := validateApplication(&req, validateNow)

	require.Empty(t, errs)
	assert.Equal(t, "+447700900123", out.Telephone)
	assert.Equal(t, "NG1 6HX", out.Postcode)
	assert.Equal(t, time.Date(2000, 6, 1, 0, 0, 0, 0, time.UTC), out.DateOfBirth)
}

func TestValidateApplicationEmptyFields(t *testing.T) {
	req := SubmitApplicationRequest{}

	_, errs := validateApplication(&req, validateNow)

	assert.Contains(t, errs, "First name cannot be empty")
	assert.Contains(t, errs, "Surname cannot be empty")
	assert.Contains(t, errs, "Date of Birth cannot be empty")
	assert.Contains(t, errs, "E-mail address cannot be empty")
	assert.Contains(t, errs, "Telephone number cannot be empty")
	assert.Contains(t, errs, "Address cannot be empty")
	assert.Contains(t, errs, "Postcode cannot be empty")
	assert.Contains(t, errs, "Month you received your King's Scout or Queen's Scout Award cannot be empty")
	assert.Contains(t, errs, "Scout reference name cannot be empty")
	assert.Contains(t, errs, "Scout reference e-mail address cannot be empty")
	assert.Contains(t, errs, "Non-Scout reference name cannot be empty")
	assert.Contains(t, errs, "Non-Scout reference e-mail address cannot be empty")
}

func TestValidateApplicationUnder18(t *testing.T) {
	req := validSubmitRequest()
	req.DateOfBirth = "2010-01-01"

	_, errs := validateApplication(&req, validateNow)

	assert.Contains(t, errs, "You must be at least 18 to join the KSWP")
}

func TestValidateApplicationExactly18(t *testing.T) {
	req := validSubmitRequest()
	req.DateOfBirth = "2008-03-15"

	_, errs := validateApplication(&req, validateNow)

	assert.Empty(t, errs)
}

func TestValidateApplicationBadQSAMonth(t *testing.T) {
	for _, qsa := range []string{"2019-13", "19-07", "July 2019", "2019/07"} {
		req := validSubmitRequest()
		req.QSAReceived = qsa

		_, errs := validateApplication(&req, validateNow)

		assert.Contains(t, errs,
			"Month you received your King's Scout or Queen's Scout Award is not valid",
			"expected %q to be rejected", qsa)
	}
}

func TestValidateApplicationRefereeEmailCrossChecks(t *testing.T) {
	req := validSubmitRequest()
	req.SREmail = req.Email

	_, errs := validateApplication(&req, validateNow)
	assert.Contains(t, errs, "Scout reference cannot use your e-mail address")

	req = validSubmitRequest()
	req.NSREmail = req.Email

	_, errs = validateApplication(&req, validateNow)
	assert.Contains(t, errs, "Non-Scout reference cannot use your e-mail address")

	req = validSubmitRequest()
	req.NSREmail = req.SREmail

	_, errs = validateApplication(&req, validateNow)
	assert.Contains(t, errs, "Scout reference and non-Scout reference cannot use the same e-mail address")
}

func TestValidateReferenceValid(t *testing.T) {
	req := SubmitReferenceRequest{
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

	notConsidered, errs := validateReference(&req)

	assert.Empty(t, errs)
	assert.False(t, notConsidered)
}

func TestValidateReferenceNotConsideredYes(t *testing.T) {
	req := SubmitReferenceRequest{
		Name:               "Friar Tuck",
		Relationship:       RelationshipNonScouting,
		CapacityKnown:      "Neighbour",
		HowLong:            "lessThan5",
		NotConsidered:      "Yes",
		StatementOfSupport: "Known them for a few years.",
		Maturity:           3,
		Responsibility:     3,
		SelfMotivation:     3,
		MotivateOthers:     3,
		Commitment:         3,
		Trustworthiness:    3,
		WorkWithAdults:     3,
		RespectForOthers:   3,
	}

	notConsidered, errs := validateReference(&req)

	assert.Empty(t, errs)
	assert.True(t, notConsidered)
}

func TestValidateReferenceScoreBounds(t *testing.T) {
	req := SubmitReferenceRequest{
		Name:               "Maid Marian",
		Relationship:       RelationshipScouting,
		CapacityKnown:      "Leader",
		HowLong:            "moreThan5",
		NotConsidered:      "no",
		StatementOfSupport: "Support.",
		Maturity:           0,
		Responsibility:     6,
		SelfMotivation:     3,
		MotivateOthers:     3,
		Commitment:         3,
		Trustworthiness:    3,
		WorkWithAdults:     3,
		RespectForOthers:   3,
	}

	_, errs := validateReference(&req)

	assert.Contains(t, errs, "Maturity must be between 1 and 5")
	assert.Contains(t, errs, "Responsibility must be between 1 and 5")
	assert.NotContains(t, errs, "Commitment must be between 1 and 5")
}

func TestValidateReferenceBadEnums(t *testing.T) {
	req := SubmitReferenceRequest{
		Name:               "Someone",
		Relationship:       "colleague",
		CapacityKnown:      "Work",
		HowLong:            "forever",
		NotConsidered:      "maybe",
		StatementOfSupport: "Support.",
		Maturity:           3, Responsibility: 3, SelfMotivation: 3, MotivateOthers: 3,
		Commitment: 3, Trustworthiness: 3, WorkWithAdults: 3, RespectForOthers: 3,
	}

	_, errs := validateReference(&req)

	assert.Contains(t, errs, "Relationship is not an expected value")
	assert.Contains(t, errs, "How Long is not an expected value")
	assert.Contains(t, errs, "Not Considered is not an expected value")
}

func TestNormalizeTelephone(t *testing.T) {
	cases := map[string]string{
		"07700 900123":     "+447700900123",
		"+447700900123":    "+447700900123",
		"(0770) 090-0123":  "+447700900123",
		" 0115 496 0000 ":  "+441154960000",
		"+44 7700 900 123": "+447700900123",
	}
	for in, want := range cases {
		got, err := normalizeTelephone(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	for _, in := range []string{"", "12345", "999", "07700 9001", "not a number"} {
		_, err := normalizeTelephone(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestNormalizePostcode(t *testing.T) {
	cases := map[string]string{
		"ng16hx":   "NG1 6HX",
		"NG1 6HX":  "NG1 6HX",
		"sw1a 1aa": "SW1A 1AA",
		"M1 1AE":   "M1 1AE",
		" ec1a1bb": "EC1A 1BB",
	}
	for in, want := range cases {
		got, err := normalizePostcode(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	for _, in := range []string{"", "12345", "NOTAPOSTCODE"} {
		_, err := normalizePostcode(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestPostcodeArea(t *testing.T) {
	assert.Equal(t, "NG", postcodeArea("NG1 6HX"))
	assert.Equal(t, "M", postcodeArea("m1 1ae"))
	assert.Equal(t, "SW", postcodeArea("SW1A 1AA"))
	assert.Equal(t, "UNKNOWN", postcodeArea("123"))
	assert.Equal(t, "UNKNOWN", postcodeArea(""))
}

func TestNormalizeMembershipNumber(t *testing.T) {
	got, err := normalizeMembershipNumber("0012345")
	require.NoError(t, err)
	assert.Equal(t, "12345", got)

	got, err = normalizeMembershipNumber(" 12345 ")
	require.NoError(t, err)
	assert.Equal(t, "12345", got)

	_, err = normalizeMembershipNumber("")
	assert.Error(t, err)

	_, err = normalizeMembershipNumber("000")
	assert.Error(t, err)

	_, err = normalizeMembershipNumber("12a45")
	assert.Error(t, err)
}

func TestMergeRefStatus(t *testing.T) {
	got := mergeRefStatus(nil, false)
	require.NotNil(t, got)
	assert.Equal(t, "SUBMITTED", *got)

	got = mergeRefStatus(nil, true)
	require.NotNil(t, got)
	assert.Equal(t, "ACCEPTED", *got)

	// An accepted reference stays accepted when the other of the pair
	// is merely submitted.
	accepted := "ACCEPTED"
	got = mergeRefStatus(&accepted, false)
	require.NotNil(t, got)
	assert.Equal(t, "ACCEPTED", *got)
}
