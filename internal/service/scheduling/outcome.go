package scheduling

// Outcome classifies the result of an engine operation. Everything except
// OutcomeStorageError is expected control flow to be rendered to the user;
// storage faults are logged and surfaced as a generic failure.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotRegistered
	OutcomeInvalidName
	OutcomeQuotaExceeded
	OutcomeSlotTaken
	OutcomeAlreadyBooked
	OutcomeTooLateToCancel
	OutcomeNotFound
	OutcomeStorageError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotRegistered:
		return "not_registered"
	case OutcomeInvalidName:
		return "invalid_name"
	case OutcomeQuotaExceeded:
		return "quota_exceeded"
	case OutcomeSlotTaken:
		return "slot_taken"
	case OutcomeAlreadyBooked:
		return "already_booked"
	case OutcomeTooLateToCancel:
		return "too_late_to_cancel"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeStorageError:
		return "storage_error"
	default:
		return "unknown"
	}
}
