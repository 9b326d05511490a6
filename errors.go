package viewstate

import (
	"fmt"
	"strings"
)

// DataError reports stored bytes that cannot be decoded.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// StoreError reports a failure of the settings store for a given settings
// key and, optionally, a single field of it.
type StoreError struct {
	Key   string
	Field string
	Msg   string
	Err   error
}

func storeErrf(key, field string, err error, format string, args ...any) error {
	return &StoreError{key, field, fmt.Sprintf(format, args...), err}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Error() string {
	var buf strings.Builder
	buf.WriteString("settings")
	if e.Key != "" {
		buf.WriteByte('/')
		buf.WriteString(e.Key)
	}
	if e.Field != "" {
		buf.WriteByte('.')
		buf.WriteString(e.Field)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
		if e.Err != nil {
			buf.WriteString(": ")
			buf.WriteString(e.Err.Error())
		}
	} else if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// FieldError describes one stored settings field that failed validation.
type FieldError struct {
	Key   string
	Value any
	Err   error
}

func (e FieldError) Error() string {
	return e.Key + ": " + e.Err.Error()
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// DecodeError lists the stored settings fields that were dropped by Decode.
type DecodeError struct {
	Fields []FieldError
}

func (e *DecodeError) Error() string {
	var buf strings.Builder
	buf.WriteString("invalid settings: ")
	for i, fe := range e.Fields {
		if i > 0 {
			buf.WriteString("; ")
		}
		buf.WriteString(fe.Error())
	}
	return buf.String()
}

// Keys returns the names of the dropped fields.
func (e *DecodeError) Keys() []string {
	keys := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		keys[i] = fe.Key
	}
	return keys
}

func (e *DecodeError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, fe := range e.Fields {
		errs[i] = fe
	}
	return errs
}
