// Package automate drives a headless browser through the household
// confirmation flow on the sender's website: open the emailed link, log
// in when the site asks for it, find the confirmation control, click
// it, and verify the outcome from the resulting page text.
package automate

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/spf13/viper"
)

const (
	navigateTimeout  = 30 * time.Second
	postLoginTimeout = 15 * time.Second
	discoveryTimeout = 15 * time.Second

	// Settle delays let client-side rendering finish between steps.
	settleDelay    = 2 * time.Second
	clickDelay     = 500 * time.Millisecond
	keystrokeDelay = 60 * time.Millisecond

	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Credentials authenticate the simulated user. Never logged.
type Credentials struct {
	Email    string
	Password string
}

// Outcome is the terminal result of one confirmation attempt.
type Outcome struct {
	Succeeded bool
	Reason    string
}

// candidate is one clickable element reported by the discovery script.
type candidate struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Tag   string `json:"tag"`
	Href  string `json:"href"`
}

// Chrome runs confirmation sessions in an isolated headless browser.
// Each Confirm call owns its browser instance exclusively and releases
// it on every exit path.
type Chrome struct {
	actionKeywords  []string
	successKeywords []string
}

// NewChrome builds an automator. The keyword sets are tunable via
// automation.action_keywords and automation.success_keywords, with
// multilingual defaults.
func NewChrome() *Chrome {
	c := &Chrome{
		actionKeywords:  defaultActionKeywords,
		successKeywords: defaultSuccessKeywords,
	}
	if kw := viper.GetStringSlice("automation.action_keywords"); len(kw) > 0 {
		c.actionKeywords = kw
	}
	if kw := viper.GetStringSlice("automation.success_keywords"); len(kw) > 0 {
		c.successKeywords = kw
	}
	return c
}

// Confirm walks one browser session through the confirmation flow and
// reports the outcome. It never returns an error: every step failure is
// logged and converted into a failed Outcome with a reason.
func (c *Chrome) Confirm(ctx context.Context, link string, creds Credentials) Outcome {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1366, 768),
		chromedp.UserAgent(desktopUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Navigate. The email encodes entities in the link, decode first.
	target := decodeLink(link)
	if err := c.run(browserCtx, navigateTimeout,
		chromedp.Navigate(target),
		chromedp.Sleep(settleDelay),
	); err != nil {
		slog.Error("Failed to open confirmation link", "error", err)
		return Outcome{Reason: "navigation failed"}
	}

	// Authenticate when the site presents a login form.
	if c.loginFormPresent(browserCtx) {
		slog.Info("Login required before confirmation")
		if out := c.authenticate(browserCtx, creds); !out.Succeeded {
			return out
		}
	}

	// Locate the confirmation control.
	index, ok := c.discoverAction(browserCtx)
	if !ok {
		slog.Warn("No confirmation control found on page")
		return Outcome{Reason: "confirmation control not found"}
	}

	// Click it and let the page update.
	if err := c.clickCandidate(browserCtx, index); err != nil {
		slog.Error("Failed to click confirmation control", "error", err)
		return Outcome{Reason: "click failed"}
	}

	// Judge the outcome from the visible page text.
	var pageText string
	if err := c.run(browserCtx, postLoginTimeout,
		chromedp.Sleep(settleDelay),
		chromedp.Evaluate(`document.body.innerText`, &pageText),
	); err != nil {
		slog.Error("Failed to read result page", "error", err)
		return Outcome{Reason: "result page unreadable"}
	}

	if c.pageIndicatesSuccess(pageText) {
		slog.Info("Confirmation succeeded")
		return Outcome{Succeeded: true}
	}

	slog.Warn("Confirmation outcome not recognized as success")
	return Outcome{Reason: "no success indication on result page"}
}

// authenticate types the credentials into the login form and verifies
// that it disappeared afterwards.
func (c *Chrome) authenticate(ctx context.Context, creds Credentials) Outcome {
	if creds.Email == "" || creds.Password == "" {
		return Outcome{Reason: "login required but credentials missing"}
	}

	if !c.typeInto(ctx, emailFieldSelectors, creds.Email) {
		return Outcome{Reason: "field not found"}
	}
	if !c.typeInto(ctx, passwordFieldSelectors, creds.Password) {
		return Outcome{Reason: "field not found"}
	}
	if !c.clickFirst(ctx, submitSelectors) {
		return Outcome{Reason: "field not found"}
	}

	// Wait for the post-submit transition. Single-page variants update
	// in place without navigating, so a timeout here is not an error.
	if err := c.run(ctx, postLoginTimeout,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
	); err != nil {
		slog.Debug("No navigation after login submit", "error", err)
	}

	if c.loginFormPresent(ctx) {
		return Outcome{Reason: "login did not complete"}
	}

	slog.Info("Authenticated")
	return Outcome{Succeeded: true}
}

// discoverAction waits for clickable candidates, enumerates them in
// document order and returns the index of the first one whose text
// matches an action keyword.
func (c *Chrome) discoverAction(ctx context.Context) (int, bool) {
	var ready bool
	if err := c.run(ctx, discoveryTimeout,
		chromedp.Poll(
			fmt.Sprintf(`document.querySelectorAll(%q).length > 0`, actionCandidateSelector),
			&ready,
			chromedp.WithPollingInterval(250*time.Millisecond),
		),
	); err != nil || !ready {
		return 0, false
	}

	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map((el, i) => ({
		index: i,
		text: (el.innerText || el.textContent || '').trim(),
		tag: el.tagName.toLowerCase(),
		href: el.getAttribute('href') || ''
	}))`, actionCandidateSelector)

	var candidates []candidate
	if err := c.run(ctx, discoveryTimeout, chromedp.Evaluate(script, &candidates)); err != nil {
		slog.Error("Failed to enumerate clickable elements", "error", err)
		return 0, false
	}

	return c.findActionTarget(candidates)
}

// findActionTarget picks the first candidate whose text contains one of
// the action keywords. First match wins, no scoring.
func (c *Chrome) findActionTarget(candidates []candidate) (int, bool) {
	for _, cand := range candidates {
		if c.matchesAction(cand.Text) {
			slog.Debug("Confirmation control matched",
				"index", cand.Index, "tag", cand.Tag, "href", cand.Href)
			return cand.Index, true
		}
	}
	return 0, false
}

func (c *Chrome) matchesAction(text string) bool {
	return containsAny(text, c.actionKeywords)
}

func (c *Chrome) pageIndicatesSuccess(text string) bool {
	return containsAny(text, c.successKeywords)
}

// clickCandidate scrolls candidate index into view and clicks it, with
// short waits for transitions on both sides.
func (c *Chrome) clickCandidate(ctx context.Context, index int) error {
	scroll := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%q)[%d];
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		return true;
	})()`, actionCandidateSelector, index)

	click := fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%q)[%d];
		if (!el) return false;
		el.click();
		return true;
	})()`, actionCandidateSelector, index)

	var ok bool
	if err := c.run(ctx, discoveryTimeout,
		chromedp.Evaluate(scroll, &ok),
		chromedp.Sleep(clickDelay),
	); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("candidate %d disappeared before click", index)
	}

	if err := c.run(ctx, discoveryTimeout,
		chromedp.Evaluate(click, &ok),
		chromedp.Sleep(clickDelay),
	); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("candidate %d disappeared during click", index)
	}
	return nil
}

// loginFormPresent probes the ordered login selectors.
func (c *Chrome) loginFormPresent(ctx context.Context) bool {
	for _, sel := range loginProbeSelectors {
		if c.present(ctx, sel) {
			return true
		}
	}
	return false
}

// typeInto tries each field selector in order, typing the text with a
// human-like per-character delay into the first one that resolves.
// Returns false when the whole list is exhausted.
func (c *Chrome) typeInto(ctx context.Context, selectors []string, text string) bool {
	for _, sel := range selectors {
		if !c.present(ctx, sel) {
			continue
		}
		if err := c.run(ctx, postLoginTimeout, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
			slog.Debug("Field not clickable", "selector", sel, "error", err)
			continue
		}

		failed := false
		for _, r := range text {
			if err := c.run(ctx, postLoginTimeout, chromedp.SendKeys(sel, string(r), chromedp.ByQuery)); err != nil {
				slog.Debug("Typing failed", "selector", sel, "error", err)
				failed = true
				break
			}
			time.Sleep(keystrokeDelay)
		}
		if failed {
			continue
		}
		return true
	}
	return false
}

// clickFirst clicks the first selector in the list that resolves.
func (c *Chrome) clickFirst(ctx context.Context, selectors []string) bool {
	for _, sel := range selectors {
		if !c.present(ctx, sel) {
			continue
		}
		if err := c.run(ctx, postLoginTimeout, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
			slog.Debug("Submit not clickable", "selector", sel, "error", err)
			continue
		}
		return true
	}
	return false
}

// present reports whether the selector resolves to an element.
func (c *Chrome) present(ctx context.Context, selector string) bool {
	var found bool
	err := c.run(ctx, 5*time.Second,
		chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%q) !== null`, selector), &found),
	)
	return err == nil && found
}

// run executes actions under a per-step timeout.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(stepCtx, actions...)
}

// decodeLink undoes the HTML entity encoding the source email applies
// to URLs (&amp; and friends).
func decodeLink(link string) string {
	return html.UnescapeString(link)
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
