package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("auction not found")
	ErrAlreadyExists    = errors.New("auction already exists")
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrBidTooLow        = errors.New("bid amount is too low")
	ErrBusy             = errors.New("auction is busy, try again")
	ErrInvalidInput     = errors.New("invalid input")
)

// BidTooLowError carries the minimum amount that would have been accepted
type BidTooLowError struct {
	Amount        int64
	MinAcceptable int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount %d is too low, minimum acceptable is %d", e.Amount, e.MinAcceptable)
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}

// Retryable reports whether the caller may retry the same command once.
func Retryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// ErrorCode maps an error onto the machine readable code used by the transports.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrAuctionNotActive):
		return "auction_not_active"
	case errors.Is(err, ErrBidTooLow):
		return "bid_too_low"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
