package report

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidStatus is returned when a status string is not one of the known values.
	ErrInvalidStatus = errors.New("invalid report status")
	// ErrInvalidTransition is returned when the requested status is not reachable from the current one.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrReportLocked is returned when an owner edits a resolved or rejected report.
	ErrReportLocked = errors.New("report is closed and can no longer be edited")
	// ErrValidation matches any FieldErrors value through errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownStep is returned for a submission step outside 1..5.
	ErrUnknownStep = errors.New("unknown submission step")
)

// FieldErrors maps a JSON field name to a human readable problem.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	if len(f) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	b.WriteString(": ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(" ")
		b.WriteString(f[k])
	}
	return b.String()
}

// Is reports FieldErrors as ErrValidation.
func (f FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

func (f FieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f FieldErrors) merge(other FieldErrors) {
	for k, v := range other {
		f.add(k, v)
	}
}

func (f FieldErrors) orNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}
