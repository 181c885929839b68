package crm

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalid   = errors.New("invalid input")
	ErrForbidden = errors.New("forbidden")
)

// FieldError carries per-field validation messages and matches ErrInvalid.
type FieldError struct {
	Fields map[string]string
}

func invalid(field, msg string) *FieldError {
	return &FieldError{Fields: map[string]string{field: msg}}
}

func (e *FieldError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *FieldError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *FieldError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *FieldError) Unwrap() error { return ErrInvalid }
