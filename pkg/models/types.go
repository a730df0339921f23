package models

import "time"

// Station is a fixed rental dock. The display name is the key the trip
// listing resolves against.
type Station struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
}

// Trip is one rental. Trips are kept in the order the trip listing shows
// them (reverse-chronological in practice, but don't rely on it).
// StartStation/EndStation are nil when the listing names a station the
// directory snapshot doesn't have; the raw names are always kept.
type Trip struct {
	StartTime        time.Time
	StartStation     *Station
	StartStationName string
	EndTime          time.Time
	EndStation       *Station
	EndStationName   string
}

func (t Trip) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// Complete reports whether both station references resolved.
func (t Trip) Complete() bool {
	return t.StartStation != nil && t.EndStation != nil
}
