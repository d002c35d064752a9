// Package validate provides composable string validators used at the
// service boundary.
package validate

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validator is a function that validates a string and returns an error if invalid
type Validator func(value string) error

// Field labels the first failing validator's error with the field name.
func Field(name string, validators ...Validator) Validator {
	inner := Compose(validators...)
	return func(value string) error {
		if err := inner(value); err != nil {
			return fmt.Errorf("%s %w", name, err)
		}
		return nil
	}
}

// Compose chains multiple validators. First error wins.
func Compose(validators ...Validator) Validator {
	return func(value string) error {
		for _, v := range validators {
			if err := v(value); err != nil {
				return err
			}
		}
		return nil
	}
}

// Optional runs the validators only when the value is non-empty.
func Optional(validators ...Validator) Validator {
	inner := Compose(validators...)
	return func(value string) error {
		if value == "" {
			return nil
		}
		return inner(value)
	}
}

// Required ensures the field is not blank
func Required() Validator {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("is required")
		}
		return nil
	}
}

// MinLength checks the minimum length in characters.
func MinLength(min int) Validator {
	return func(v string) error {
		if utf8.RuneCountInString(v) < min {
			return fmt.Errorf("must be at least %d characters", min)
		}
		return nil
	}
}

// MaxLength checks the maximum length in characters.
func MaxLength(max int) Validator {
	return func(v string) error {
		if utf8.RuneCountInString(v) > max {
			return fmt.Errorf("must be no more than %d characters", max)
		}
		return nil
	}
}

// LengthBetween checks length between min and max (inclusive)
func LengthBetween(min, max int) Validator {
	return Compose(MinLength(min), MaxLength(max))
}

// MaxBytes bounds the encoded size.
func MaxBytes(max int) Validator {
	return func(v string) error {
		if len(v) > max {
			return fmt.Errorf("must be no more than %d bytes", max)
		}
		return nil
	}
}

// ValidUTF8 rejects invalid encodings.
func ValidUTF8() Validator {
	return func(v string) error {
		if !utf8.ValidString(v) {
			return fmt.Errorf("must be valid UTF-8")
		}
		return nil
	}
}

// NoControlChars rejects control characters. Line breaks and tabs pass when
// multiline is true.
func NoControlChars(multiline bool) Validator {
	return func(v string) error {
		for _, r := range v {
			if multiline && (r == '\n' || r == '\r' || r == '\t') {
				continue
			}
			if unicode.IsControl(r) {
				return fmt.Errorf("must not contain control characters")
			}
		}
		return nil
	}
}

// OneOf checks if value is in allowed list
func OneOf(allowed ...string) Validator {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(v string) error {
		if _, ok := set[v]; !ok {
			return fmt.Errorf("must be one of: %s", strings.Join(allowed, ", "))
		}
		return nil
	}
}
