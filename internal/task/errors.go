package task

import "fmt"

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	// KindStructure covers missing or unterminated delimiters, non-mapping
	// headers, and trees exceeding the size or depth limits.
	KindStructure ErrorKind = iota
	// KindField covers type, enum and date mismatches on recognized keys.
	KindField
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindStructure:
		return "structure"
	case KindField:
		return "field"
	default:
		return "unknown"
	}
}

// ParseError is the single typed error surfaced for any malformed task file.
// Key is set for field-level failures, empty for structural ones.
type ParseError struct {
	Kind   ErrorKind
	Key    string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s error: key %q: %s", e.Kind, e.Key, e.Reason)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Reason)
}

func structuralErr(format string, args ...any) *ParseError {
	return &ParseError{Kind: KindStructure, Reason: fmt.Sprintf(format, args...)}
}

func fieldErr(key, format string, args ...any) *ParseError {
	return &ParseError{Kind: KindField, Key: key, Reason: fmt.Sprintf(format, args...)}
}
