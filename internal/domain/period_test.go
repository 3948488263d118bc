package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Period
		wantErr bool
	}{
		{name: "year_month", input: "2026-01", want: Period{Year: 2026, Month: time.January}},
		{name: "full_date", input: "2026-03-15", want: Period{Year: 2026, Month: time.March}},
		{name: "garbage", input: "enero", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodNextWrapsYear(t *testing.T) {
	p := Period{Year: 2026, Month: time.December}
	assert.Equal(t, Period{Year: 2027, Month: time.January}, p.Next())
}

func TestHorizonCrossesYearBoundary(t *testing.T) {
	periods := Horizon(Period{Year: 2026, Month: time.November}, 4)
	require.Len(t, periods, 4)
	assert.Equal(t, "2026-11", periods[0].Key())
	assert.Equal(t, "2026-12", periods[1].Key())
	assert.Equal(t, "2027-01", periods[2].Key())
	assert.Equal(t, "2027-02", periods[3].Key())
}

func TestPeriodJSONRoundTrip(t *testing.T) {
	p := Period{Year: 2026, Month: time.July}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `"2026-07"`, string(data))

	var back Period
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p, back)
}

func TestPeriodBefore(t *testing.T) {
	jan := Period{Year: 2026, Month: time.January}
	feb := Period{Year: 2026, Month: time.February}
	assert.True(t, jan.Before(feb))
	assert.False(t, feb.Before(jan))
	assert.False(t, jan.Before(jan))
	assert.True(t, Period{Year: 2025, Month: time.December}.Before(jan))
}
