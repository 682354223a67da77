package models

import (
	"regexp"
	"strings"
)

// Allow-list patterns for submitted fields. Inputs are matched whole; a
// single disallowed character rejects the field.
var (
	usernamePattern     = regexp.MustCompile(`^[a-z]+\.[a-z]+$`)
	namePattern         = regexp.MustCompile(`^[a-zA-Z0-9\s]+$`)
	optionPattern       = regexp.MustCompile(`^[a-zA-Z0-9\s-]+$`)
	subFieldPattern     = regexp.MustCompile(`^[a-zA-Z0-9\s]+$`)
	freeTextPattern     = regexp.MustCompile(`^[a-zA-Z0-9\s.,\-']+$`)
	letterPattern       = regexp.MustCompile(`^[a-z\s]+$`)
	memberNumberPattern = regexp.MustCompile(`^[1-9]+$`)

	whitespaceRun = regexp.MustCompile(`\s+`)
	dashRun       = regexp.MustCompile(`-+`)
)

// NormalizeUsername lowercases and trims a submitted username and collapses
// internal whitespace runs to the dot separator, so "John Smith" and
// "john.smith" normalize identically.
func NormalizeUsername(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return whitespaceRun.ReplaceAllString(s, ".")
}

// ValidateUsername checks a normalized username against the length bounds
// and the first.last shape. It reports false for anything that should be
// rejected as malformed, before any directory lookup happens.
func ValidateUsername(username string) bool {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return false
	}
	return usernamePattern.MatchString(username)
}

// ValidateName checks a display name against the alphanumeric allow-list
func ValidateName(name string) bool {
	return namePattern.MatchString(name)
}

// ValidateOption checks a categorical value (operational flag, activity)
func ValidateOption(value string) bool {
	return optionPattern.MatchString(value)
}

// ValidateSubField checks an activity sub-field value
func ValidateSubField(value string) bool {
	return subFieldPattern.MatchString(value)
}

// ValidateFreeText checks the otherType field, which allows light
// punctuation on top of the alphanumeric set
func ValidateFreeText(value string) bool {
	return freeTextPattern.MatchString(value)
}

// ValidatePersonName checks a lowercase first or last name
func ValidatePersonName(value string) bool {
	return letterPattern.MatchString(value)
}

// ValidateMemberNumber checks a member number string
func ValidateMemberNumber(value string) bool {
	return memberNumberPattern.MatchString(value)
}

// SanitizePersonName lowercases a name part and strips dashes and all
// whitespace, matching how usernames and display names are derived
func SanitizePersonName(raw string) string {
	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, "-", "")
	return whitespaceRun.ReplaceAllString(s, "")
}

// SanitizeOption turns a dash-joined categorical value back into its display
// form: dash runs become single spaces and whitespace runs collapse
func SanitizeOption(raw string) string {
	s := dashRun.ReplaceAllString(raw, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
