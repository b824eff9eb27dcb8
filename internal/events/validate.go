package events

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var slugRe = regexp.MustCompile(`^[a-z0-9][-a-z0-9]{0,19}$`)

// Closed token sets. Unknown criterion tokens are rejected here, at event
// configuration time, so the evaluator and scoring engine never see one.
var validAttendanceCriteria = map[string]bool{
	"active":  true,
	"under25": true,
	"over25":  true,
}

var validWeightingCriteria = map[string]bool{
	"under_25": true, "over_25": true,
	"attended": true, "attended_1yr": true, "attended_2yr": true, "attended_3yr": true, "attended_5yr": true,
	"droppedout_6mo": true, "droppedout_1yr": true, "droppedout_2yr": true, "droppedout_3yr": true,
	"noshow_6mo": true, "noshow_1yr": true, "noshow_2yr": true, "noshow_3yr": true,
	"joined_1yr": true, "joined_2yr": true, "joined_3yr": true, "joined_5yr": true,
	"qsa_1yr": true, "qsa_2yr": true, "qsa_3yr": true, "qsa_5yr": true,
}

// ValidateSlug checks a series or event identifier
func ValidateSlug(id string) error {
	if len(id) > 20 {
		return fmt.Errorf("ID cannot be longer than 20 characters")
	}
	if !slugRe.MatchString(id) {
		return fmt.Errorf("ID must start with a letter or a number, and can only contain lower case characters, numbers and hyphens")
	}
	return nil
}

// validateSeries normalizes and validates a series request, returning all
// validation messages found.
func validateSeries(req *CreateSeriesRequest) []string {
	var errs []string

	req.EventSeriesID = strings.ToLower(strings.TrimSpace(req.EventSeriesID))
	if err := ValidateSlug(req.EventSeriesID); err != nil {
		errs = append(errs, "Event series "+err.Error())
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		errs = append(errs, "Name cannot be empty")
	}

	if req.Type != TypeEvent && req.Type != TypeSocial && req.Type != TypeNoImpact {
		errs = append(errs, "Series type must be a supported value")
	}

	return errs
}

// validatedInstance is the normalized output of validateInstance
type validatedInstance struct {
	RegistrationDate time.Time
	StartDate        time.Time
	EndDate          time.Time
}

// validateInstance normalizes and validates an instance request. now is
// injected so tests can pin the no-past-dates checks.
func validateInstance(req *CreateInstanceRequest, now time.Time) (*validatedInstance, []string) {
	var errs []string

	req.EventID = strings.ToLower(strings.TrimSpace(req.EventID))
	if err := ValidateSlug(req.EventID); err != nil {
		errs = append(errs, "Event "+err.Error())
	}

	req.Details = strings.TrimSpace(req.Details)
	if req.Details == "" {
		errs = append(errs, "Event details cannot be empty")
	}

	req.Location = strings.TrimSpace(req.Location)
	if req.Location == "" {
		errs = append(errs, "Location cannot be empty")
	}

	req.LocationType = strings.TrimSpace(req.LocationType)
	if req.LocationType != LocationPhysical && req.LocationType != LocationVirtual {
		errs = append(errs, "Location type must be a supported value")
	}

	if req.LocationType == LocationPhysical {
		req.Postcode = strings.TrimSpace(req.Postcode)
		if req.Postcode == "" {
			errs = append(errs, "Postcode must be provided for physical events")
		}
	} else {
		req.Postcode = ""
	}

	out := &validatedInstance{}
	var err error

	if out.StartDate, err = time.Parse(time.RFC3339, req.StartDate); err != nil {
		errs = append(errs, "Start date must be a valid date time")
	} else if !req.AllowPastDates && out.StartDate.Before(now) {
		errs = append(errs, "Start date can't be in the past")
	}

	if out.EndDate, err = time.Parse(time.RFC3339, req.EndDate); err != nil {
		errs = append(errs, "End date must be a valid date time")
	} else if !req.AllowPastDates && out.EndDate.Before(now) {
		errs = append(errs, "End date can't be in the past")
	}

	if !out.StartDate.IsZero() && !out.EndDate.IsZero() && out.StartDate.After(out.EndDate) {
		errs = append(errs, "Start date can't be after the end date")
	}

	if out.RegistrationDate, err = time.Parse("2006-01-02", req.RegistrationDate); err != nil {
		errs = append(errs, "Registration date must be a valid date")
	} else {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if !req.AllowPastDates && out.RegistrationDate.Before(today) {
			errs = append(errs, "Registration date can't be in the past")
		}
		if !out.StartDate.IsZero() && out.RegistrationDate.After(out.StartDate) {
			errs = append(errs, "Registration date can't be after the start date")
		}
	}

	for _, criterion := range req.AttendanceCriteria {
		if !validAttendanceCriteria[criterion] {
			errs = append(errs, fmt.Sprintf("Attendance criteria %s not a supported value", criterion))
		}
	}

	for criterion := range req.WeightingCriteria {
		if !validWeightingCriteria[criterion] {
			errs = append(errs, fmt.Sprintf("Weighting criteria %s not a supported value", criterion))
		}
	}

	if req.AttendanceLimit < 0 {
		errs = append(errs, "Attendance limit cannot be less than 0")
	}

	if req.Cost < 0 {
		errs = append(errs, "Cost cannot be less than 0")
	}

	return out, errs
}
