package sentinel

import (
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Kind is the routing decision for one inbound message.
type Kind int

const (
	// KindCode marks a message expected to contain or lead to a
	// one-time verification code.
	KindCode Kind = iota

	// KindHousehold marks a message requiring an interactive website
	// confirmation instead of a code.
	KindHousehold
)

// defaultTriggers classify a message as a household confirmation when
// any of them appears in the subject or body. Tunable via
// classify.triggers; the sender uses German and English templates.
var defaultTriggers = []string{
	"haushalt",
	"household",
	"primären standort",
	"primary location",
	"vorübergehenden zugriff",
	"temporary access",
}

// actionLinkPatterns locate the household action link in the HTML body,
// most specific family first: direct update link, travel verification,
// account access management, then anything household-flavored.
var actionLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://www\.netflix\.com/account/update-primary-location[^\s"'<>]*`),
	regexp.MustCompile(`https://www\.netflix\.com/account/travel/verify[^\s"'<>]*`),
	regexp.MustCompile(`https://www\.netflix\.com/account/manage-access[^\s"'<>]*`),
	regexp.MustCompile(`https?://[^\s"'<>]*household[^\s"'<>]*`),
}

// Classify routes a message: household confirmation when a trigger
// phrase appears in subject or body, code-bearing candidate otherwise.
func Classify(msg Message) Kind {
	haystack := strings.ToLower(msg.Subject + "\n" + msg.TextBody + "\n" + msg.HTMLBody)

	for _, trigger := range classifyTriggers() {
		if strings.Contains(haystack, strings.ToLower(trigger)) {
			return KindHousehold
		}
	}

	return KindCode
}

// FindActionLink returns the first household action link in the HTML,
// trying the pattern families in order of specificity. Empty when none
// match.
func FindActionLink(html string) string {
	for _, pattern := range actionLinkPatterns {
		if link := pattern.FindString(html); link != "" {
			return link
		}
	}
	return ""
}

func classifyTriggers() []string {
	if triggers := viper.GetStringSlice("classify.triggers"); len(triggers) > 0 {
		return triggers
	}
	return defaultTriggers
}
