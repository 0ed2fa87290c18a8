package models

import (
	"strings"

	dErrors "volid/pkg/domain-errors"
)

// Status is the lifecycle state of a volunteer record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusTemporary Status = "temporary"
	StatusRejected  Status = "rejected"
	StatusBanned    Status = "banned"
)

// allowedTransitions is the lifecycle graph. Nothing ever leads back to pending.
// Same-state entries are handled by the caller (no-op or reason replacement).
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusActive:    true,
		StatusTemporary: true,
		StatusRejected:  true,
		StatusBanned:    true,
	},
	StatusActive: {
		StatusBanned:    true,
		StatusTemporary: true,
	},
	StatusTemporary: {
		StatusBanned: true,
		StatusActive: true,
	},
	StatusBanned: {
		StatusActive:    true,
		StatusTemporary: true,
	},
	StatusRejected: {
		StatusActive:    true,
		StatusTemporary: true,
		StatusBanned:    true,
	},
}

// ParseStatus validates a client-supplied status string.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidStatus, "status must be one of pending, active, temporary, rejected, banned")
	}
	return status, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusTemporary, StatusRejected, StatusBanned:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether the lifecycle graph has an edge s -> target.
func (s Status) CanTransitionTo(target Status) bool {
	return allowedTransitions[s][target]
}

// RequiresReason reports whether entering the status needs an admin-supplied reason.
func (s Status) RequiresReason() bool {
	return s == StatusRejected || s == StatusBanned
}

// BindsIdentifier reports whether entering the status requires a volunteer identifier.
func (s Status) BindsIdentifier() bool {
	return s == StatusActive || s == StatusTemporary
}

// BlocksReapplication reports whether a record in this status prevents a new application.
func (s Status) BlocksReapplication() bool {
	return s != StatusRejected
}
