package headermapper

import (
	"regexp"
	"strings"
)

// TransformFunc rewrites a single (possibly joined) header value
type TransformFunc func(value string) string

func ToLower(value string) string   { return strings.ToLower(value) }
func ToUpper(value string) string   { return strings.ToUpper(value) }
func TrimSpace(value string) string { return strings.TrimSpace(value) }

// Normalize trims surrounding space and lowercases the value
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func AddPrefix(prefix string) TransformFunc {
	return func(value string) string { return prefix + value }
}

func RemovePrefix(prefix string) TransformFunc {
	return func(value string) string { return strings.TrimPrefix(value, prefix) }
}

func AddSuffix(suffix string) TransformFunc {
	return func(value string) string { return value + suffix }
}

func RemoveSuffix(suffix string) TransformFunc {
	return func(value string) string { return strings.TrimSuffix(value, suffix) }
}

// ExtractBearerToken returns the token of a "Bearer <token>" value, or the
// value unchanged when the scheme is missing.
func ExtractBearerToken(value string) string {
	const bearerPrefix = "Bearer "
	if token, ok := strings.CutPrefix(value, bearerPrefix); ok {
		return strings.TrimSpace(token)
	}
	return value
}

// MaskSensitive keeps showChars characters on both ends and masks the rest.
// Values too short to keep anything are masked entirely.
func MaskSensitive(showChars int) TransformFunc {
	showChars = max(showChars, 0)
	return func(value string) string {
		if len(value) <= showChars*2 {
			return strings.Repeat("*", len(value))
		}
		masked := len(value) - showChars*2
		return value[:showChars] + strings.Repeat("*", masked) + value[len(value)-showChars:]
	}
}

// Truncate cuts the value to at most maxLength bytes
func Truncate(maxLength int) TransformFunc {
	maxLength = max(maxLength, 0)
	return func(value string) string {
		if len(value) <= maxLength {
			return value
		}
		return value[:maxLength]
	}
}

// DefaultIfEmpty substitutes defaultValue for blank values
func DefaultIfEmpty(defaultValue string) TransformFunc {
	return func(value string) string {
		if strings.TrimSpace(value) == "" {
			return defaultValue
		}
		return value
	}
}

// RegexReplace replaces every match of pattern. It panics if pattern does
// not compile.
func RegexReplace(pattern, replacement string) TransformFunc {
	re := regexp.MustCompile(pattern)
	return func(value string) string {
		return re.ReplaceAllString(value, replacement)
	}
}

// ConditionalTransform applies transform only when condition holds
func ConditionalTransform(condition func(string) bool, transform TransformFunc) TransformFunc {
	return func(value string) string {
		if condition(value) {
			return transform(value)
		}
		return value
	}
}

// ChainTransforms applies transforms left to right, skipping nil entries
func ChainTransforms(transforms ...TransformFunc) TransformFunc {
	return func(value string) string {
		for _, transform := range transforms {
			if transform != nil {
				value = transform(value)
			}
		}
		return value
	}
}
