package reports

// AttendanceReport histograms how often active members took part over the
// past year. Counts[state][n] is the number of active members with exactly n
// allocations in that state.
type AttendanceReport struct {
	Counts map[string]map[int]int `json:"counts"`
}

// EventStats aggregates one class of event series
type EventStats struct {
	StartMonths            map[string]int `json:"startMonths"` // YYYY-MM over the past five years
	EventsPastYear         int            `json:"eventsPastYear"`
	HoursPastYear          float64        `json:"hoursPastYear"` // attendee-hours
	OversubscribedPastYear int            `json:"oversubscribedPastYear"`
	Postcodes              map[string]int `json:"postcodes"`
	EventsUpcoming         int            `json:"eventsUpcoming"`
	NextEvent              *string        `json:"nextEvent"`
}

// EventReport splits event statistics by series type
type EventReport struct {
	Events  EventStats `json:"events"`
	Socials EventStats `json:"socials"`
}

// MemberExportRequest selects which members to export and whether to merge
// allocation status for one event. An empty member list with an event set
// exports everyone who interacted with that event; empty both ways exports
// the whole roll.
type MemberExportRequest struct {
	CombinedEventID string   `json:"combinedEventId"`
	Members         []string `json:"members"`
	Format          string   `json:"format"`
}
