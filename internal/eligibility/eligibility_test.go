package eligibility

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/member"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func instanceWithCriteria(t *testing.T, start time.Time, criteria ...string) *events.EventInstance {
	t.Helper()
	raw, err := json.Marshal(criteria)
	require.NoError(t, err)
	return &events.EventInstance{
		EventSeriesID:      "camp",
		EventID:            "summer",
		StartDate:          start,
		AttendanceCriteria: datatypes.JSON(raw),
	}
}

func TestEvaluateActive(t *testing.T) {
	today := date(2026, time.June, 1)
	instance := instanceWithCriteria(t, date(2026, time.August, 1), "active")

	t.Run("lapsed membership fails", func(t *testing.T) {
		m := &member.Member{MembershipExpires: date(2020, time.January, 1)}

		result := Evaluate(m, instance, today)

		assert.False(t, result.Eligible)
		require.Len(t, result.Rules, 1)
		assert.Equal(t, Rule{ID: "active", Passed: false}, result.Rules[0])
	})

	t.Run("expiry today still passes", func(t *testing.T) {
		m := &member.Member{MembershipExpires: today}

		result := Evaluate(m, instance, today)

		assert.True(t, result.Eligible)
		assert.Equal(t, Rule{ID: "active", Passed: true}, result.Rules[0])
	})
}

func TestEvaluateAgeCutoff(t *testing.T) {
	// Event starts 1 August 2026, so the under-25 cutoff birthday is
	// 1 August 2001.
	start := date(2026, time.August, 1)
	today := date(2026, time.June, 1)

	tests := []struct {
		name        string
		dateOfBirth time.Time
		under25     bool
	}{
		{"born on cutoff is under 25", date(2001, time.August, 1), true},
		{"born after cutoff is under 25", date(2005, time.March, 12), true},
		{"born day before cutoff is over 25", date(2001, time.July, 31), false},
		{"born well before cutoff is over 25", date(1990, time.January, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &member.Member{DateOfBirth: tt.dateOfBirth}

			under := Evaluate(m, instanceWithCriteria(t, start, "under25"), today)
			over := Evaluate(m, instanceWithCriteria(t, start, "over25"), today)

			assert.Equal(t, tt.under25, under.Eligible)
			assert.Equal(t, !tt.under25, over.Eligible)
		})
	}
}

func TestEvaluateUnknownTokensIgnored(t *testing.T) {
	m := &member.Member{MembershipExpires: date(2030, time.January, 1)}
	instance := instanceWithCriteria(t, date(2026, time.August, 1), "left-handed")

	result := Evaluate(m, instance, date(2026, time.June, 1))

	// Only unknown tokens means vacuously eligible with no rules evaluated
	assert.True(t, result.Eligible)
	assert.Empty(t, result.Rules)
}

func TestEvaluateNoCriteria(t *testing.T) {
	m := &member.Member{}
	instance := &events.EventInstance{StartDate: date(2026, time.August, 1)}

	result := Evaluate(m, instance, date(2026, time.June, 1))

	assert.True(t, result.Eligible)
	assert.Empty(t, result.Rules)
}

func TestEvaluateIsPure(t *testing.T) {
	m := &member.Member{
		DateOfBirth:       date(2003, time.May, 5),
		MembershipExpires: date(2027, time.January, 31),
	}
	instance := instanceWithCriteria(t, date(2026, time.August, 1), "active", "under25")
	today := date(2026, time.June, 1)

	first := Evaluate(m, instance, today)
	second := Evaluate(m, instance, today)

	assert.Equal(t, first, second)
}

func TestEvaluateCombinedCriteria(t *testing.T) {
	instance := instanceWithCriteria(t, date(2026, time.August, 1), "active", "under25")
	today := date(2026, time.June, 1)

	m := &member.Member{
		DateOfBirth:       date(1995, time.May, 5), // over 25
		MembershipExpires: date(2027, time.January, 31),
	}

	result := Evaluate(m, instance, today)

	assert.False(t, result.Eligible)
	require.Len(t, result.Rules, 2)
	assert.Equal(t, Rule{ID: "active", Passed: true}, result.Rules[0])
	assert.Equal(t, Rule{ID: "under25", Passed: false}, result.Rules[1])
}
