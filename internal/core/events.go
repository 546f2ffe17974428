package core

import "time"

// ComparisonAction names what happened to a comparison list.
type ComparisonAction string

const (
	ActionAdded   ComparisonAction = "added"
	ActionRemoved ComparisonAction = "removed"
	ActionCleared ComparisonAction = "cleared"
)

// ComparisonEvent is emitted after a comparison list changes.
// For ActionCleared, SchoolIDs lists what was removed.
type ComparisonEvent struct {
	SessionID  string           `json:"sessionId"`
	Action     ComparisonAction `json:"action"`
	SchoolID   string           `json:"schoolId,omitempty"`
	DistrictID string           `json:"districtId,omitempty"`
	SchoolIDs  []string         `json:"schoolIds,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// SchoolPopularity counts how often a school was pinned and unpinned.
type SchoolPopularity struct {
	SchoolID   string
	Name       string
	DistrictID string
	Added      int64
	Removed    int64
}
