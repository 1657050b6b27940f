package httpx

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"social-coordination/internal/domain/apperr"
)

// Rule es un predicado de validación. Las reglas se componen con Validate y se
// evalúan en orden, así una regla de parseo puede alimentar a la siguiente.
type Rule func() error

// Validate corre las reglas y devuelve el primer error (apperr.ErrInvalidInput).
func Validate(rules ...Rule) error {
	for _, rule := range rules {
		if err := rule(); err != nil {
			return err
		}
	}
	return nil
}

// When aplica rule solo si cond (campos opcionales).
func When(cond bool, rule Rule) Rule {
	return func() error {
		if !cond {
			return nil
		}
		return rule()
	}
}

func invalid(field, format string, args ...any) error {
	return apperr.New(apperr.ErrInvalidInput, field+" "+format, args...)
}

func Required(field, value string) Rule {
	return func() error {
		if strings.TrimSpace(value) == "" {
			return invalid(field, "is required")
		}
		return nil
	}
}

func MaxLen(field, value string, n int) Rule {
	return func() error {
		if utf8.RuneCountInString(strings.TrimSpace(value)) > n {
			return invalid(field, "must be at most %d characters", n)
		}
		return nil
	}
}

// Bool acepta true/false o los strings "true"/"false". El core nunca ve strings.
func Bool(field string, raw json.RawMessage, out *bool) Rule {
	return func() error {
		if len(raw) == 0 {
			return invalid(field, "is required")
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			*out = b
			return nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true":
				*out = true
				return nil
			case "false":
				*out = false
				return nil
			}
		}
		return invalid(field, "must be 'true' or 'false'")
	}
}

// Int acepta un número JSON o un string numérico ("10").
func Int(field string, raw json.RawMessage, out *int) Rule {
	return func() error {
		if len(raw) == 0 {
			return invalid(field, "is required")
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			*out = n
			return nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				*out = v
				return nil
			}
		}
		return invalid(field, "must be a whole number")
	}
}

// Positive se evalúa después de Int (lee el valor ya parseado).
func Positive(field string, n *int) Rule {
	return func() error {
		if *n <= 0 {
			return invalid(field, "must be greater than zero")
		}
		return nil
	}
}

// Time parsea RFC3339. Si optional y raw vacío, out queda nil.
func Time(field, raw string, out **time.Time, optional bool) Rule {
	return func() error {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			if optional {
				*out = nil
				return nil
			}
			return invalid(field, "is required")
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return invalid(field, "must be RFC3339")
		}
		*out = &t
		return nil
	}
}

// Before exige *a < *b cuando ambos están presentes.
func Before(field string, a, b **time.Time) Rule {
	return func() error {
		if *a == nil || *b == nil {
			return nil
		}
		if !(*a).Before(**b) {
			return invalid(field, "must be before its end")
		}
		return nil
	}
}
