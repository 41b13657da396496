package event

import (
	"time"

	"jogosescolares/internal/apperrors"
)

type AdminStatus string

const (
	AdminStatusDraft     AdminStatus = "DRAFT"
	AdminStatusPublished AdminStatus = "PUBLISHED"
	AdminStatusSuspended AdminStatus = "SUSPENDED"
	AdminStatusCancelled AdminStatus = "CANCELLED"
	AdminStatusReopened  AdminStatus = "REOPENED"
)

func (s AdminStatus) IsValid() bool {
	switch s {
	case AdminStatusDraft, AdminStatusPublished, AdminStatusSuspended, AdminStatusCancelled, AdminStatusReopened:
		return true
	default:
		return false
	}
}

func ParseAdminStatus(s string) (AdminStatus, error) {
	status := AdminStatus(s)
	if !status.IsValid() {
		return "", apperrors.Validation("invalid admin status %q", s)
	}
	return status, nil
}

type TimeStatus string

const (
	TimeStatusScheduled TimeStatus = "SCHEDULED"
	TimeStatusActive    TimeStatus = "ACTIVE"
	TimeStatusClosed    TimeStatus = "CLOSED"
)

// ComputeTimeStatus places now on the event's timeline. Both bounds count as
// ACTIVE.
func ComputeTimeStatus(now, start, end time.Time) TimeStatus {
	switch {
	case now.Before(start):
		return TimeStatusScheduled
	case now.After(end):
		return TimeStatusClosed
	default:
		return TimeStatusActive
	}
}

// IsEditable gates every mutating action on an event.
func IsEditable(adminStatus AdminStatus, timeStatus TimeStatus) bool {
	if timeStatus == TimeStatusClosed {
		return false
	}
	switch adminStatus {
	case AdminStatusDraft, AdminStatusPublished, AdminStatusReopened:
		return true
	default:
		return false
	}
}

var transitions = map[AdminStatus][]AdminStatus{
	AdminStatusDraft:     {AdminStatusPublished, AdminStatusCancelled},
	AdminStatusPublished: {AdminStatusSuspended, AdminStatusCancelled},
	AdminStatusSuspended: {AdminStatusReopened, AdminStatusCancelled},
	AdminStatusCancelled: {AdminStatusReopened},
	AdminStatusReopened:  {AdminStatusPublished, AdminStatusCancelled},
}

// CanTransition reports whether an administrative status change is allowed.
func CanTransition(from, to AdminStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type RegistrationKind string

const (
	RegistrationIndividual RegistrationKind = "individual"
	RegistrationCollective RegistrationKind = "collective"
)
