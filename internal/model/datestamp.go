package model

import "fmt"

// DateStamp identifies a calendar day independent of time zone.
type DateStamp struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d DateStamp) Equal(other DateStamp) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

func (d DateStamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}
