package automate

// Locator strategy lists, tried strictly in order until one resolves.
// The target site varies its markup between locales and rollouts, so
// each concern carries several fallbacks.

// loginProbeSelectors detect a login form. Presence of any means the
// session is not authenticated yet.
var loginProbeSelectors = []string{
	`input[name="userLoginId"]`,
	`input[data-uia="login-field"]`,
	`input[type="email"]`,
	`input[name="email"]`,
	`form[action*="login"] input[type="password"]`,
}

// emailFieldSelectors locate the identity input on the login form.
var emailFieldSelectors = []string{
	`input[name="userLoginId"]`,
	`input[data-uia="login-field"]`,
	`input[type="email"]`,
	`input[name="email"]`,
	`input[id*="email"]`,
}

// passwordFieldSelectors locate the secret input.
var passwordFieldSelectors = []string{
	`input[name="password"]`,
	`input[data-uia="password-field"]`,
	`input[type="password"]`,
}

// submitSelectors locate the login submit control.
var submitSelectors = []string{
	`button[data-uia="login-submit-button"]`,
	`button[type="submit"]`,
	`input[type="submit"]`,
	`form button`,
}

// actionCandidateSelector enumerates everything that could be the
// confirmation control. Matched candidates are filtered by text in
// document order.
const actionCandidateSelector = `button, [role="button"], a[href*="update"], a`

// defaultActionKeywords mark a candidate's visible text as the
// confirmation action. Containment test, case-insensitive.
var defaultActionKeywords = []string{
	"bestätigen",
	"aktualisieren",
	"confirm",
	"update",
	"verify",
}

// defaultSuccessKeywords decide the outcome from the final page text.
var defaultSuccessKeywords = []string{
	"erfolgreich",
	"bestätigt",
	"aktualisiert",
	"success",
	"confirmed",
	"updated",
	"danke",
	"thank you",
}
