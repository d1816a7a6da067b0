package errors

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinels marking the stage that failed
var (
	ErrTranscription = errors.New("transcription failed")
	ErrExtraction    = errors.New("extraction failed")
	ErrPersistence   = errors.New("persistence failed")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrDelivery      = errors.New("delivery failed")
	ErrDependency    = errors.New("dependency unavailable")
	ErrSystem        = errors.New("system error")

	statusCodeMap = map[error]int{
		ErrValidation:    http.StatusBadRequest,
		ErrNotFound:      http.StatusNotFound,
		ErrTranscription: http.StatusBadGateway,
		ErrExtraction:    http.StatusBadGateway,
		ErrDelivery:      http.StatusBadGateway,
		ErrDependency:    http.StatusServiceUnavailable,
		ErrPersistence:   http.StatusInternalServerError,
		ErrSystem:        http.StatusInternalServerError,
	}
)

// GenericUserMessage is sent when a failure carries no hint
const GenericUserMessage = "❌ Error generating invoice. Please try again."

const reasonLimit = 100

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap adds context to err
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf adds formatted context to err
func Wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsPersistence checks if an error is a persistence error
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// HTTPStatusFromErr maps a marked error to an HTTP status
func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// UserMessage renders err for a WhatsApp reply: the outermost hint, or the
// generic retry text, followed by a short excerpt of the cause.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	head := GenericUserMessage
	// hints come innermost first, the outermost one speaks for the flow
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		head = hints[len(hints)-1]
	}
	reason := errors.UnwrapAll(err).Error()
	if reason == "" {
		return head
	}
	return head + "\n\n" + Truncate(reason, reasonLimit)
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
