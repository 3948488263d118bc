package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Period identifies a calendar month on the projection axis.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses "2006-01" or a full "2006-01-02" date into a Period.
func ParsePeriod(s string) (Period, error) {
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return PeriodOf(t), nil
		}
	}
	return Period{}, fmt.Errorf("invalid period %q (expected YYYY-MM or YYYY-MM-DD)", s)
}

// Key returns the canonical "YYYY-MM" representation.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) String() string { return p.Key() }

// MarshalJSON encodes the period as its "YYYY-MM" key.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Key())
}

func (p *Period) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Before reports whether p precedes o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Horizon returns n consecutive periods starting at start.
func Horizon(start Period, n int) []Period {
	periods := make([]Period, 0, n)
	p := start
	for i := 0; i < n; i++ {
		periods = append(periods, p)
		p = p.Next()
	}
	return periods
}
