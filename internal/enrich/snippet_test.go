package enrich

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractSnippet(t *testing.T) {
	long := "This paragraph is comfortably longer than forty characters in total."

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "meta description wins",
			html: `<html><head><meta name="Description" content="  Meta   text "><meta property="og:description" content="OG text"></head><body><p>` + long + `</p></body></html>`,
			want: "Meta text",
		},
		{
			name: "og description fallback",
			html: `<html><head><meta property="og:description" content="OG text"></head><body><p>` + long + `</p></body></html>`,
			want: "OG text",
		},
		{
			name: "first long paragraph",
			html: `<html><body><p>Too short.</p><p>` + long + `</p><p>Another long paragraph that should never be selected here.</p></body></html>`,
			want: long,
		},
		{
			name: "nested paragraph text",
			html: `<p>The <b>quick</b> brown fox jumps over the <a href="#">lazy</a> dog again and again.</p>`,
			want: "The quick brown fox jumps over the lazy dog again and again.",
		},
		{
			name: "scripts ignored",
			html: `<script>var p = "<p>not a paragraph but long enough to count as one</p>";</script>`,
			want: "",
		},
		{
			name: "nothing usable",
			html: `<html><body><div>no paragraphs</div></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSnippet(tt.html); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractSnippet_Truncates(t *testing.T) {
	content := strings.Repeat("é", 800)
	got := ExtractSnippet(`<meta name="description" content="` + content + `">`)
	if n := utf8.RuneCountInString(got); n != MaxSnippetRunes {
		t.Errorf("Expected %d runes, got %d", MaxSnippetRunes, n)
	}
}

func TestAgentToken(t *testing.T) {
	if got := AgentToken("TrustLens/0.1 (+https://example.com)"); got != "TrustLens" {
		t.Errorf("Expected TrustLens, got %s", got)
	}
	if got := AgentToken(""); got != "" {
		t.Errorf("Expected empty token, got %s", got)
	}
}
