package domain

import "errors"

// Error taxonomy shared by both engines. Adapters and services wrap these with
// fmt.Errorf("%w: ...") so callers can classify failures with errors.Is.
var (
	// ErrNotFound means the subject does not exist. Terminal, never retried.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput means required content is missing or malformed. Terminal.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataAccess means an upstream read failed. Callers may retry with backoff.
	ErrDataAccess = errors.New("data access error")

	// ErrPersistence means the result was computed but could not be durably written.
	ErrPersistence = errors.New("persistence error")
)

// ErrorKind returns a stable machine-readable name for err's taxonomy class.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDataAccess):
		return "data_access"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}
