package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle phase of an auction, always derivable from (startAt, endAt, now)
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
)

// DeriveStatus computes the status an auction window has at instant now.
// The window is half open: active on [startAt, endAt), ended from endAt on.
func DeriveStatus(startAt, endAt, now time.Time) Status {
	switch {
	case !now.Before(endAt):
		return StatusEnded
	case !now.Before(startAt):
		return StatusActive
	default:
		return StatusPending
	}
}

// Advance returns the later of the cached and the freshly derived status.
// Transitions only move forward, so a clock that steps backwards cannot reopen an auction.
func Advance(cached, derived Status) Status {
	if derived.rank() > cached.rank() {
		return derived
	}
	return cached
}

func (s Status) rank() int {
	switch s {
	case StatusActive:
		return 1
	case StatusEnded:
		return 2
	default:
		return 0
	}
}

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusEnded
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusEnded:
		return true
	}
	return false
}

// ParseStatus reads a status filter. The marketplace screens used several vocabularies
// ("Active", "Upcoming", "upcoming"), all of them map onto the three canonical values.
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "pending", "upcoming":
		return StatusPending, nil
	case "active", "live":
		return StatusActive, nil
	case "ended", "closed", "finished":
		return StatusEnded, nil
	}
	return "", fmt.Errorf("%w: unknown auction status %q", ErrInvalidInput, v)
}
