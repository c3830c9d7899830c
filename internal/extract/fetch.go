package extract

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	fetchTimeout = 10 * time.Second
	maxRedirects = 5

	// Retrieved pages are capped to keep a hostile or broken endpoint
	// from holding the whole body in memory.
	maxBodySize = 2 << 20

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// deadLinkKeywords mark a fetched page as expired or broken. Error text
// and stale codes co-occur on such pages, so this check runs before any
// extraction attempt.
var deadLinkKeywords = []string{
	"expired",
	"abgelaufen",
	"invalid",
	"ungültig",
	"error",
	"fehler",
	"not found",
	"nicht gefunden",
}

// Fetcher retrieves a linked page and reapplies context-aware code
// extraction to it. All transport failures degrade to "no code found".
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher with a bounded timeout and redirect budget.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchCode issues a single GET for the link and returns the first code
// found by context-aware extraction, or "" when the page is unreachable,
// reports itself as dead, or contains no code. It never returns an
// error; failures are logged and treated as "not found".
func (f *Fetcher) FetchCode(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		slog.Warn("Invalid code link", "link", link, "error", err)
		return ""
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Warn("Failed to fetch code link", "link", link, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		slog.Warn("Code link returned error status", "link", link, "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		slog.Warn("Failed to read code link response", "link", link, "error", err)
		return ""
	}

	page := string(body)
	lower := strings.ToLower(page)
	for _, kw := range deadLinkKeywords {
		if strings.Contains(lower, kw) {
			slog.Info("Code link appears dead", "link", link, "keyword", kw)
			return ""
		}
	}

	codes := ExtractCodesWithContext(page)
	if len(codes) == 0 {
		slog.Info("No code found on linked page", "link", link)
		return ""
	}

	return codes[0]
}
