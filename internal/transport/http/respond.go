package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slotbot/internal/service/scheduling"
)

type apiError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// outcomeStatus maps engine rejections to HTTP statuses. Every rejection
// stays distinguishable by its code; storage faults collapse to a
// generic 500.
func outcomeStatus(o scheduling.Outcome) int {
	switch o {
	case scheduling.OutcomeOK:
		return http.StatusOK
	case scheduling.OutcomeNotRegistered:
		return http.StatusForbidden
	case scheduling.OutcomeInvalidName:
		return http.StatusUnprocessableEntity
	case scheduling.OutcomeQuotaExceeded, scheduling.OutcomeSlotTaken,
		scheduling.OutcomeAlreadyBooked, scheduling.OutcomeTooLateToCancel:
		return http.StatusConflict
	case scheduling.OutcomeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func outcomeMessage(o scheduling.Outcome) string {
	switch o {
	case scheduling.OutcomeNotRegistered:
		return "Register with your name before booking."
	case scheduling.OutcomeInvalidName:
		return "Please provide both a given and a family name."
	case scheduling.OutcomeQuotaExceeded:
		return "You already hold the maximum number of bookings."
	case scheduling.OutcomeSlotTaken:
		return "That slot was just taken by someone else."
	case scheduling.OutcomeAlreadyBooked:
		return "You already hold this slot."
	case scheduling.OutcomeTooLateToCancel:
		return "Too late to cancel this booking."
	case scheduling.OutcomeNotFound:
		return "Not found."
	default:
		return "Something went wrong, please try again."
	}
}

func writeOutcome(c *gin.Context, o scheduling.Outcome) {
	code := o.String()
	if o == scheduling.OutcomeStorageError {
		code = "internal"
	}
	c.JSON(outcomeStatus(o), apiError{Code: code, Message: outcomeMessage(o)})
}
