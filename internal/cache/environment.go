package cache

import "github.com/reedcms/reedbase/internal/reed"

// envKey composes the environment-scoped form of a key.
func envKey(key, environment string) string {
	return key + "@" + environment
}

// ValidateEnvironment checks an environment name. Names are ASCII
// letters, digits, underscore, and hyphen; "dev", "prod", "staging",
// and seasonal overlays like "christmas" all qualify.
func ValidateEnvironment(environment string) error {
	if environment == "" {
		return &reed.ValidationError{
			Field:      "environment",
			Value:      environment,
			Constraint: "must not be empty",
		}
	}
	for _, r := range environment {
		if !isEnvRune(r) {
			return &reed.ValidationError{
				Field:      "environment",
				Value:      environment,
				Constraint: "only letters, digits, underscore, and hyphen allowed",
			}
		}
	}
	return nil
}

func isEnvRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-':
		return true
	}
	return false
}
