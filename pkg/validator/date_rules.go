package validator

import "time"

// DateNotAfter fails when value is after limit. Zero times are not compared,
// so open-ended ranges pass.
func DateNotAfter(field string, value, limit time.Time) Rule {
	return Rule{
		Check: func() bool {
			return value.IsZero() || limit.IsZero() || !value.After(limit)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must not be after " + limit.UTC().Format(time.RFC3339),
		},
	}
}
