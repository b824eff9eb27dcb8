package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validateNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func validInstanceRequest() CreateInstanceRequest {
	return CreateInstanceRequest{
		EventID:          "2026-06",
		Details:          "Weekend maintenance camp",
		Location:         "Gilwell Park",
		LocationType:     LocationPhysical,
		Postcode:         "E4 7QW",
		RegistrationDate: "2026-05-01",
		StartDate:        "2026-06-12T18:00:00Z",
		EndDate:          "2026-06-14T16:00:00Z",
		Cost:             25,
		AttendanceLimit:  30,
	}
}

func TestValidateSlug(t *testing.T) {
	for _, id := range []string{"summer-camp", "2026-06", "a", "x1-y2-z3"} {
		assert.NoError(t, ValidateSlug(id), "id %q", id)
	}

	for _, id := range []string{"", "-leading", "UPPER", "has space", "under_score", "really-long-identifier-over-twenty"} {
		assert.Error(t, ValidateSlug(id), "id %q", id)
	}
}

func TestValidateSeriesValid(t *testing.T) {
	req := CreateSeriesRequest{
		EventSeriesID: " Summer-Camp ",
		Name:          "Summer Camp",
		Type:          TypeEvent,
	}

	errs := validateSeries(&req)

	assert.Empty(t, errs)
	assert.Equal(t, "summer-camp", req.EventSeriesID)
}

func TestValidateSeriesRejectsBadType(t *testing.T) {
	req := CreateSeriesRequest{
		EventSeriesID: "summer-camp",
		Name:          "Summer Camp",
		Type:          "PARTY",
	}

	errs := validateSeries(&req)

	assert.Contains(t, errs, "Series type must be a supported value")
}

func TestValidateInstanceValid(t *testing.T) {
	req := validInstanceRequest()

	out, errs := validateInstance(&req, validateNow)

	require.Empty(t, errs)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), out.RegistrationDate)
	assert.Equal(t, time.Date(2026, 6, 12, 18, 0, 0, 0, time.UTC), out.StartDate)
	assert.Equal(t, time.Date(2026, 6, 14, 16, 0, 0, 0, time.UTC), out.EndDate)
}

func TestValidateInstancePastDates(t *testing.T) {
	req := validInstanceRequest()
	req.RegistrationDate = "2025-01-01"
	req.StartDate = "2025-02-01T10:00:00Z"
	req.EndDate = "2025-02-02T16:00:00Z"

	_, errs := validateInstance(&req, validateNow)

	assert.Contains(t, errs, "Start date can't be in the past")
	assert.Contains(t, errs, "End date can't be in the past")
	assert.Contains(t, errs, "Registration date can't be in the past")
}

func TestValidateInstanceAllowPastDates(t *testing.T) {
	req := validInstanceRequest()
	req.RegistrationDate = "2025-01-01"
	req.StartDate = "2025-02-01T10:00:00Z"
	req.EndDate = "2025-02-02T16:00:00Z"
	req.AllowPastDates = true

	_, errs := validateInstance(&req, validateNow)

	assert.Empty(t, errs)
}

func TestValidateInstanceDateOrdering(t *testing.T) {
	req := validInstanceRequest()
	req.StartDate = "2026-06-14T16:00:00Z"
	req.EndDate = "2026-06-12T18:00:00Z"

	_, errs := validateInstance(&req, validateNow)
	assert.Contains(t, errs, "Start date can't be after the end date")

	req = validInstanceRequest()
	req.RegistrationDate = "2026-06-13"

	_, errs = validateInstance(&req, validateNow)
	assert.Contains(t, errs, "Registration date can't be after the start date")
}

func TestValidateInstancePhysicalNeedsPostcode(t *testing.T) {
	req := validInstanceRequest()
	req.Postcode = ""

	_, errs := validateInstance(&req, validateNow)
	assert.Contains(t, errs, "Postcode must be provided for physical events")
}

func TestValidateInstanceVirtualDropsPostcode(t *testing.T) {
	req := validInstanceRequest()
	req.LocationType = LocationVirtual
	req.Location = "https://meet.example.com/camp"
	req.Postcode = "E4 7QW"

	_, errs := validateInstance(&req, validateNow)

	assert.Empty(t, errs)
	assert.Empty(t, req.Postcode)
}

func TestValidateInstanceCriteriaTokens(t *testing.T) {
	req := validInstanceRequest()
	req.AttendanceCriteria = []string{"active", "under25"}
	req.WeightingCriteria = map[string]float64{"attended_1yr": 2, "noshow_6mo": -3, "qsa_5yr": 1}

	_, errs := validateInstance(&req, validateNow)
	assert.Empty(t, errs)

	req = validInstanceRequest()
	req.AttendanceCriteria = []string{"left-handed"}
	req.WeightingCriteria = map[string]float64{"lucky": 1}

	_, errs = validateInstance(&req, validateNow)
	assert.Contains(t, errs, "Attendance criteria left-handed not a supported value")
	assert.Contains(t, errs, "Weighting criteria lucky not a supported value")
}

func TestValidateInstanceNegativeLimits(t *testing.T) {
	req := validInstanceRequest()
	req.AttendanceLimit = -1
	req.Cost = -5

	_, errs := validateInstance(&req, validateNow)

	assert.Contains(t, errs, "Attendance limit cannot be less than 0")
	assert.Contains(t, errs, "Cost cannot be less than 0")
}
