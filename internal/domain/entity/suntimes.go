package entity

import "time"

// SunDateFormat is the canonical YYYY-MM-DD form used for cache keys
// and provider queries.
const SunDateFormat = "2006-01-02"

// SunTimes holds the sunrise/sunset instants for one coordinate on
// one local calendar date. Instants are stored in UTC and converted
// to local time for comparisons.
type SunTimes struct {
	Coordinate Coordinate `json:"coordinate"`
	// Date is the local calendar date the times belong to, YYYY-MM-DD.
	Date    string    `json:"date"`
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
	// Source names the provider that produced the times.
	Source string `json:"source,omitempty"`
}

// Valid reports whether both instants are set and ordered.
func (s SunTimes) Valid() bool {
	return !s.Sunrise.IsZero() && !s.Sunset.IsZero() && s.Sunrise.Before(s.Sunset)
}

// ElapsedBy reports whether the entry's date has fully passed in
// now's location, meaning the cache entry can be discarded.
func (s SunTimes) ElapsedBy(now time.Time) bool {
	d, err := time.ParseInLocation(SunDateFormat, s.Date, now.Location())
	if err != nil {
		return true
	}
	return !now.Before(d.AddDate(0, 0, 1))
}
