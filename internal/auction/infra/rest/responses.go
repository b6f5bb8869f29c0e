package rest

import (
	"errors"
	"fmt"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ErrorDetails struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ErrorResponse is the body of every non 2xx answer
type ErrorResponse struct {
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	Details       []ErrorDetails `json:"details,omitempty"`
	MinAcceptable int64          `json:"min_acceptable,omitempty"`
	Retryable     bool           `json:"retryable,omitempty"`
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrAuctionNotActive):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrBidTooLow):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrBusy):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	resp := ErrorResponse{
		Code:      domain.ErrorCode(err),
		Message:   err.Error(),
		Retryable: domain.Retryable(err),
	}
	var tooLow *domain.BidTooLowError
	if errors.As(err, &tooLow) {
		resp.MinAcceptable = tooLow.MinAcceptable
	}
	if status == fiber.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		// internals stay in the log
		resp.Message = "internal server error"
	}
	return c.Status(status).JSON(resp)
}

func respondValidationError(c *fiber.Ctx, err error) error {
	var details []ErrorDetails
	var validErrs validator.ValidationErrors
	if errors.As(err, &validErrs) {
		for _, vErr := range validErrs {
			details = append(details, ErrorDetails{
				Field: vErr.Field(),
				Issue: fmt.Sprintf("failed on tag '%s' with param '%s'", vErr.Tag(), vErr.Param()),
			})
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Code:    domain.ErrorCode(domain.ErrInvalidInput),
		Message: "input validation failed",
		Details: details,
	})
}
