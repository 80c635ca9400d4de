package model

import "time"

// RosterStudent is an enrolment record used to size a class/section.
type RosterStudent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Class     string    `json:"class"`
	Section   string    `json:"section"`
	CreatedAt time.Time `json:"created_at"`
}
