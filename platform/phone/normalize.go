// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "DE"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	normalized, err := NormalizeE164Strict(input)
	if err != nil {
		return strings.TrimSpace(input)
	}
	return normalized
}

// NormalizeE164Strict formats a phone number to E.164 and returns an error when
// the input cannot be parsed as a valid number. Verification uses this variant
// so an unverifiable number is rejected before any provider call is made.
func NormalizeE164Strict(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("empty phone number")
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return "", fmt.Errorf("parse phone number: %w", err)
	}

	if !phonenumbers.IsValidNumber(number) {
		return "", fmt.Errorf("invalid phone number: %s", trimmed)
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}
