package validator

import (
	"fmt"
	"slices"
	"strings"
)

// RequiredString fails when value is empty after trimming whitespace.
func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

// MaxLenString fails when value is longer than max bytes.
func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters long", max)},
	}
}

// MinNum fails when value < min.
func MinNum[T Numeric](field string, value, min T) Rule {
	return Rule{
		Check: func() bool { return value >= min },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at least %v", min)},
	}
}

// MaxNum fails when value > max. A zero max disables the rule.
func MaxNum[T Numeric](field string, value, max T) Rule {
	return Rule{
		Check: func() bool {
			var zero T
			return max == zero || value <= max
		},
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %v", max)},
	}
}

// Positive fails when value <= 0.
func Positive[T Numeric](field string, value T, message string) Rule {
	if message == "" {
		message = "must be positive"
	}
	return Rule{
		Check: func() bool {
			var zero T
			return value > zero
		},
		Error: ValidationError{Field: field, Message: message},
	}
}

// InListString fails when value is not one of allowed.
func InListString(field, value string, allowed []string) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))},
	}
}

// NoPathTraversal fails when value contains a ".." path segment.
func NoPathTraversal(field, value string) Rule {
	return Rule{
		Check: func() bool {
			for _, seg := range strings.FieldsFunc(value, func(r rune) bool { return r == '/' || r == '\\' }) {
				if seg == ".." {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "must not contain '..' segments"},
	}
}
