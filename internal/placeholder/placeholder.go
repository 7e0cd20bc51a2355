// Package placeholder validates personalization tokens in campaign copy.
//
// Validation runs before copy approval. Missing required tokens do not
// block approval — the client is the final authority on their own copy —
// but the result is recorded in the approval's audit log.
package placeholder

import (
	"regexp"
	"sort"
	"strings"
)

// Result is the outcome of validating one piece of copy.
type Result struct {
	IsValid             bool     `json:"isValid"`
	MissingPlaceholders []string `json:"missingPlaceholders"`
	Warnings            []string `json:"warnings"`
}

// tokenClass is one logical personalization token with its known spellings.
type tokenClass struct {
	name     string
	patterns []string
}

var required = []tokenClass{
	{name: "First Name", patterns: []string{"{{first_name}}", "{{firstName}}", "%first_name%"}},
	{name: "Company Name", patterns: []string{"{{company_name}}", "{{companyName}}", "%company_name%"}},
	{name: "Signature", patterns: []string{"%signature%", "{{signature}}"}},
}

var recommended = []tokenClass{
	{name: "Job Title", patterns: []string{"{{job_title}}", "{{jobTitle}}", "%job_title%"}},
	{name: "Time of Day (Smart Send)", patterns: []string{"{{sl_time_of_day}}", "%sl_time_of_day%"}},
}

// Malformed token shapes: single braces, double square brackets, and
// literal [INSERT ...] markers left over from templates. The single-brace
// pattern must not fire inside a well-formed {{token}}.
var brokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(^|[^{])\{[a-z_]+\}($|[^}])`),
	regexp.MustCompile(`\[\[.*?\]\]`),
	regexp.MustCompile(`(?i)\[INSERT.*?\]`),
}

func (tc tokenClass) presentIn(content string) bool {
	for _, p := range tc.patterns {
		if strings.Contains(content, p) {
			return true
		}
	}
	return false
}

// Validate inspects copy text for required personalization tokens and
// malformed token shapes. A required class counts as present if any of its
// spellings occurs as a substring. IsValid is false iff a required class is
// entirely absent. Warnings cover malformed shapes only; absent recommended
// tokens are reported by MissingRecommended.
func Validate(content string) Result {
	res := Result{
		MissingPlaceholders: []string{},
		Warnings:            []string{},
	}

	for _, tc := range required {
		if !tc.presentIn(content) {
			res.MissingPlaceholders = append(res.MissingPlaceholders, tc.name)
		}
	}

	for _, re := range brokenPatterns {
		if re.MatchString(content) {
			res.Warnings = append(res.Warnings, "Found potentially broken placeholders. Please verify formatting.")
			break
		}
	}

	res.IsValid = len(res.MissingPlaceholders) == 0
	return res
}

// MissingRecommended returns the recommended token classes absent from the
// copy. Absence never affects validity; callers record it for review.
func MissingRecommended(content string) []string {
	var out []string
	for _, tc := range recommended {
		if !tc.presentIn(content) {
			out = append(out, tc.name)
		}
	}
	return out
}

var (
	doubleBraceRe = regexp.MustCompile(`\{\{[^}]+\}\}`)
	percentRe     = regexp.MustCompile(`(?i)%[a-z_]+%`)
)

// Extract returns the distinct placeholder tokens found in content, in
// sorted order.
func Extract(content string) []string {
	seen := map[string]bool{}
	for _, m := range doubleBraceRe.FindAllString(content, -1) {
		seen[m] = true
	}
	for _, m := range percentRe.FindAllString(content, -1) {
		seen[m] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
