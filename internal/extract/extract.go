// Package extract implements the text analysis behind code retrieval:
// URL harvesting from HTML, bounded 6-digit code matching, and a
// context-aware extraction cascade that trades recall for precision on
// large or code-dense pages.
package extract

import (
	"regexp"
	"strings"
)

const (
	// Pages larger than this are considered too noisy for the blind
	// numeric fallback in ExtractCodesWithContext.
	fallbackSizeLimit = 50000

	// The blind fallback is rejected when it produces more distinct
	// codes than this. Heuristic against code-dense pages.
	fallbackCodeCap = 3
)

var (
	linkPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

	// A standalone 6-digit run. The word boundaries prevent matching a
	// 6-digit window of a longer number.
	codePattern = regexp.MustCompile(`\b\d{6}\b`)

	// Context pattern families, tried in addition to each other and
	// unioned. Family 1: code-indicating keyword shortly before the run.
	keywordThenCode = regexp.MustCompile(`(?i)(?:code|kode|otp|pin|passcode|einmalpasswort|verifizierung|verification)\D{0,20}?(\d{6})\b`)

	// Family 2: the run directly followed by a code-indicating phrase.
	codeThenPhrase = regexp.MustCompile(`(?i)\b(\d{6})\s*(?:is your|ist (?:dein|ihr)|code|otp)`)

	// Family 3: the run alone between a markup tag pair.
	tagEnclosedCode = regexp.MustCompile(`>\s*(\d{6})\s*<`)
)

// codeLinkKeywords marks links worth following for a code. Matching is
// case-insensitive substring containment on the URL itself.
var codeLinkKeywords = []string{
	"code",
	"verify",
	"verification",
	"confirm",
	"bestaetigen",
	"bestätigen",
	"otp",
	"token",
}

// ExtractLinks returns all absolute http(s) URLs found in the input,
// deduplicated. Empty input yields an empty result.
func ExtractLinks(html string) []string {
	return dedupe(linkPattern.FindAllString(html, -1))
}

// ExtractCodes returns all standalone 6-digit runs in the text,
// deduplicated. Runs embedded in longer numbers are not matched.
func ExtractCodes(text string) []string {
	return dedupe(codePattern.FindAllString(text, -1))
}

// ExtractCodesWithContext unions the matches of the three context
// pattern families. When none of them match and the page is small
// enough, it falls back to blind numeric matching, but rejects the
// fallback when it yields more than fallbackCodeCap distinct codes.
func ExtractCodesWithContext(html string) []string {
	var found []string

	for _, re := range []*regexp.Regexp{keywordThenCode, codeThenPhrase, tagEnclosedCode} {
		for _, m := range re.FindAllStringSubmatch(html, -1) {
			found = append(found, m[1])
		}
	}

	codes := dedupe(found)
	if len(codes) > 0 {
		return codes
	}

	if len(html) >= fallbackSizeLimit {
		return nil
	}

	plain := ExtractCodes(html)
	if len(plain) > fallbackCodeCap {
		return nil
	}

	return plain
}

// FilterCodeLinks keeps only links that contain a code-related keyword,
// preserving input order.
func FilterCodeLinks(links []string) []string {
	var kept []string

	for _, link := range links {
		lower := strings.ToLower(link)
		for _, kw := range codeLinkKeywords {
			if strings.Contains(lower, kw) {
				kept = append(kept, link)
				break
			}
		}
	}

	return kept
}

// dedupe collapses duplicates while keeping first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var unique []string

	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}

	return unique
}
