// Replayline - Session Replay Ingestion and Timeline Generation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/replayline

package timeline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Redaction tokens.
const (
	MaskEmail    = "[EMAIL]"
	MaskPassword = "[PASSWORD]"
	MaskPhone    = "[PHONE]"
	MaskName     = "[NAME]"
	MaskAddress  = "[ADDRESS]"
	MaskPayment  = "[PAYMENT]"
	MaskSSN      = "[SSN]"
)

const (
	maxUnmaskedRunes = 20
	minPhoneDigits   = 10
	maxPhoneDigits   = 15
)

type labelRule struct {
	keywords []string
	exclude  string
	token    string
}

// Checked in order against the lower-cased field label.
var labelRules = []labelRule{
	{keywords: []string{"email"}, token: MaskEmail},
	{keywords: []string{"password"}, token: MaskPassword},
	{keywords: []string{"phone"}, token: MaskPhone},
	{keywords: []string{"name"}, exclude: "username", token: MaskName},
	{keywords: []string{"address", "street", "city", "zip"}, token: MaskAddress},
	{keywords: []string{"card", "credit", "cvv", "cvc"}, token: MaskPayment},
	{keywords: []string{"ssn", "social"}, token: MaskSSN},
}

var (
	emailValue = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneValue = regexp.MustCompile(`^\+?[0-9][0-9 ().-]*[0-9]$`)
	cardValue  = regexp.MustCompile(`^(?:[0-9][ -]?){15}[0-9]$`)
	ssnValue   = regexp.MustCompile(`^[0-9]{3}-?[0-9]{2}-?[0-9]{4}$`)
)

// MaskPII redacts a typed value. The field label decides first; otherwise
// the value's shape does. Unclassified values longer than 20 characters are
// replaced by their length. Short unclassified values pass through.
func MaskPII(value, fieldLabel string) string {
	label := strings.ToLower(fieldLabel)
	for _, rule := range labelRules {
		if rule.exclude != "" && strings.Contains(label, rule.exclude) {
			continue
		}
		for _, kw := range rule.keywords {
			if strings.Contains(label, kw) {
				return rule.token
			}
		}
	}

	v := strings.TrimSpace(value)
	switch {
	case emailValue.MatchString(v):
		return MaskEmail
	case isPhone(v):
		return MaskPhone
	case cardValue.MatchString(v):
		return MaskPayment
	case ssnValue.MatchString(v):
		return MaskSSN
	}

	if n := utf8.RuneCountInString(value); n > maxUnmaskedRunes {
		return fmt.Sprintf("[INPUT: %d chars]", n)
	}
	return value
}

func isPhone(v string) bool {
	if !phoneValue.MatchString(v) {
		return false
	}
	digits := 0
	for _, r := range v {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}
