package report

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/datafix-cli/internal/table"
)

// Kind classifies a failure recorded in a Report.
type Kind string

const (
	ColumnNotFound          Kind = "ColumnNotFound"
	RowOutOfRange           Kind = "RowOutOfRange"
	MatchNotFound           Kind = "MatchNotFound"
	MissingReplacementValue Kind = "MissingReplacementValue"
	UnsupportedStatement    Kind = "UnsupportedStatement"
	ParseError              Kind = "ParseError"
	// CriticalInputError aborts a whole run; everything else is per action.
	CriticalInputError Kind = "CriticalInputError"
	// Internal marks failures outside the taxonomy.
	Internal Kind = "Internal"
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a short context message.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf maps any error onto the taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	var nf *table.ColumnNotFoundError
	if errors.As(err, &nf) {
		return ColumnNotFound
	}
	var oor *table.RowOutOfRangeError
	if errors.As(err, &oor) {
		return RowOutOfRange
	}
	return Internal
}

// Describe renders err for the Report error list, prefixed by its kind.
func Describe(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Error()
	}
	return fmt.Sprintf("%s: %v", KindOf(err), err)
}
