// Package guardrails implements the pre-model safety checks.
//
// Check runs four classifiers in a fixed order, each independently
// sufficient to reject the input:
//  1. prompt-injection phrase match
//  2. sensitive data detection (emails, phone numbers, national IDs,
//     payment cards, IBANs)
//  3. link detection
//  4. profanity denylist
//
// The first hit short-circuits. Checks run before any model call so that
// unsafe text and PII never reach a third-party endpoint.
package guardrails

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Rejection categories.
const (
	CategoryInjection = "prompt_injection"
	CategorySensitive = "sensitive_data"
	CategoryLink      = "link"
	CategoryProfanity = "profanity"
)

// SecurityError is a classified guardrail rejection. Trigger names the
// matched phrase or pattern for audit logging; it never echoes the full
// input back.
type SecurityError struct {
	Category string
	Trigger  string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("request rejected by %s guardrail (trigger: %q)", e.Category, e.Trigger)
}

// InjectionPhrases is the fixed denylist of jailbreak/override phrases,
// matched case-insensitively as substrings. Exported for tests.
var InjectionPhrases = []string{
	"ignore previous instructions",
	"ignore your instructions",
	"you are now a",
	"forget everything above",
	"developer mode",
	"override safety",
	"disregard guidelines",
	"system prompt",
	"jailbreak",
	"act as if",
	"pretend you are",
	"roleplay as",
	"simulate being",
	"bypass restrictions",
	"ignore safeguards",
	"admin override",
	"root access",
}

// sensitivePatterns detect data that must never reach a model endpoint.
// Order matters only for which trigger gets reported.
var sensitivePatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{"phone", regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{3,4}`)},
	{"national_id", regexp.MustCompile(`\b\d{11}\b`)},
	{"payment_card", regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)},
	{"iban", regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`)},
}

var linkPattern = regexp.MustCompile(`https?://`)

// profanityWords is intentionally short; the point is the mechanism, not
// lexicographic coverage.
var profanityWords = []string{
	"fuck", "shit", "bitch", "asshole", "bastard", "cunt", "dick", "suck my",
}

// Check screens text against all guardrails in order and returns a
// *SecurityError on the first hit, nil otherwise. Side-effect free apart
// from audit logging.
func Check(text string) error {
	lowered := strings.ToLower(text)

	for _, phrase := range InjectionPhrases {
		if strings.Contains(lowered, phrase) {
			log.Warn().Str("category", CategoryInjection).Str("phrase", phrase).
				Msg("SECURITY: prompt injection detected")
			return &SecurityError{Category: CategoryInjection, Trigger: phrase}
		}
	}

	for _, p := range sensitivePatterns {
		if p.re.MatchString(text) {
			log.Warn().Str("category", CategorySensitive).Str("pattern", p.name).
				Msg("SECURITY: sensitive data detected")
			return &SecurityError{Category: CategorySensitive, Trigger: p.name}
		}
	}

	if linkPattern.MatchString(lowered) {
		log.Warn().Str("category", CategoryLink).Msg("SECURITY: link detected")
		return &SecurityError{Category: CategoryLink, Trigger: "http(s) URL"}
	}

	for _, word := range profanityWords {
		if strings.Contains(lowered, word) {
			log.Warn().Str("category", CategoryProfanity).Str("word", word).
				Msg("SECURITY: profanity detected")
			return &SecurityError{Category: CategoryProfanity, Trigger: word}
		}
	}

	return nil
}
