package model

import "time"

type CalendarCreate struct {
	OwnerID         int64
	Name            string
	FreeBusyVisible bool
}

type Calendar struct {
	ID   int64
	CTag string
	CalendarCreate
}

type ObjectCreate struct {
	CalendarID int64
	Name       string
	UID        string
	Component  string
	Summary    string
	Organizer  string
	Attendees  []string
	Status     BusyStatus
	RRule      string
	Floating   bool
	From       time.Time
	To         time.Time
	Data       string
}

type CalendarObject struct {
	ID            int64
	ETag          string
	ExpandedUntil time.Time
	ObjectCreate
}
