package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "standalone code",
			text: "Your verification code is 551234, valid for 10 minutes",
			want: []string{"551234"},
		},
		{
			name: "code surrounded by punctuation",
			text: "Code: 482913.",
			want: []string{"482913"},
		},
		{
			name: "no six digit window of a longer number",
			text: "Order number 12345678901 confirmed",
			want: nil,
		},
		{
			name: "five digits ignored",
			text: "PIN 12345 is too short",
			want: nil,
		},
		{
			name: "duplicates collapsed",
			text: "551234 and again 551234",
			want: []string{"551234"},
		},
		{
			name: "multiple distinct codes",
			text: "first 111111 then 222222",
			want: []string{"111111", "222222"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractCodes(tt.text))
		})
	}
}

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	html := `<a href="https://example.com/verify?code=1">verify</a>
		<a href="https://example.com/verify?code=1">again</a>
		<a href="http://other.example.org/x">other</a>`

	links := ExtractLinks(html)

	assert.Len(t, links, 2)
	assert.Contains(t, links, "https://example.com/verify?code=1")
	assert.Contains(t, links, "http://other.example.org/x")
}

func TestExtractLinks_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ExtractLinks(""))
	assert.Empty(t, ExtractLinks("no links here"))
}

func TestFilterCodeLinks(t *testing.T) {
	t.Parallel()

	links := []string{
		"https://example.com/unsubscribe",
		"https://example.com/verify/abc",
		"https://example.com/images/logo.png",
	}

	assert.Equal(t, []string{"https://example.com/verify/abc"}, FilterCodeLinks(links))
}

func TestFilterCodeLinks_CaseInsensitive(t *testing.T) {
	t.Parallel()

	filtered := FilterCodeLinks([]string{"https://example.com/VERIFY/abc"})
	assert.Len(t, filtered, 1)
}

func TestExtractCodesWithContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "keyword before code",
			html: "Your code is: 482913",
			want: []string{"482913"},
		},
		{
			name: "code before phrase",
			html: "482913 is your verification code",
			want: []string{"482913"},
		},
		{
			name: "tag enclosed code",
			html: "<td class=\"otp\"><strong>482913</strong></td>",
			want: []string{"482913"},
		},
		{
			name: "families unioned",
			html: "code 111111 and <b>222222</b>",
			want: []string{"111111", "222222"},
		},
		{
			name: "small page without context falls back",
			html: "please use 482913 within ten minutes",
			want: []string{"482913"},
		},
		{
			name: "fallback rejected above code cap",
			html: "111111 222222 333333 444444",
			want: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractCodesWithContext(tt.html))
		})
	}
}

func TestExtractCodesWithContext_LargePageNoFallback(t *testing.T) {
	t.Parallel()

	// 60k characters, no context keywords, five bare codes: exceeds both
	// the size threshold and the fallback cap.
	var b strings.Builder
	b.WriteString("111111 222222 333333 444444 555555 ")
	for b.Len() < 60000 {
		b.WriteString("lorem ipsum dolor sit amet ")
	}

	assert.Empty(t, ExtractCodesWithContext(b.String()))
}

func TestExtractCodesWithContext_ContextBeatsSize(t *testing.T) {
	t.Parallel()

	// Context matches are accepted regardless of page size.
	var b strings.Builder
	b.WriteString("Your code is 482913. ")
	for b.Len() < 60000 {
		b.WriteString("lorem ipsum dolor sit amet ")
	}

	assert.Equal(t, []string{"482913"}, ExtractCodesWithContext(b.String()))
}
