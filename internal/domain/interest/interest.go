// Package interest canonicalizes and validates free-text research interests.
package interest

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
)

// MaxLength is the maximum raw term length in characters.
const MaxLength = 500

// Reason is a machine-readable validation failure code.
type Reason string

// Validation reason codes returned to clients as error_code.
const (
	ReasonEmpty        Reason = "empty"
	ReasonTooLong      Reason = "too_long"
	ReasonInvalidChars Reason = "invalid_chars"
)

// ValidationError reports why a raw term was rejected.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "Research interest term is required"
	case ReasonTooLong:
		return fmt.Sprintf("Research interest term is too long (max %d characters)", MaxLength)
	case ReasonInvalidChars:
		return "Research interest term contains invalid characters"
	default:
		return "invalid research interest term"
	}
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidRequest }

// Normalize trims, collapses whitespace runs to one space and lower-cases.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Validate checks raw input and returns the normalized term.
// raw is typed any because request bodies may carry non-string JSON values.
func Validate(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok || Normalize(s) == "" {
		return "", &ValidationError{Reason: ReasonEmpty}
	}
	if utf8.RuneCountInString(s) > MaxLength {
		return "", &ValidationError{Reason: ReasonTooLong}
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", &ValidationError{Reason: ReasonInvalidChars}
		}
	}
	return Normalize(s), nil
}
