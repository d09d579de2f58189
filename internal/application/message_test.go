package application

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&amp;&lt;&gt;&quot;&#039;", escapeHTML(`&<>"'`))
	assert.Equal(t, "Tom &amp; Jerry&#039;s", escapeHTML("Tom & Jerry's"))
}

func TestRenderContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		want     string
		contains []string
		excludes []string
	}{
		{
			name:    "plain text escaped with line breaks",
			content: "Hi <b>Bob</b>\nThanks & bye",
			want:    "Hi &lt;b&gt;Bob&lt;/b&gt;<br>Thanks &amp; bye",
		},
		{
			name:    "crlf normalized",
			content: "a\r\nb",
			want:    "a<br>b",
		},
		{
			name:    "cta link with query string",
			content: "Hi [Let's Talk](http://x/y?a=1&b=2)",
			contains: []string{
				`Hi <a href="http://x/y?a=1&amp;b=2" style="`,
				`>Let's Talk</a>`,
			},
			excludes: []string{"a=1&b=2", "[Let"},
		},
		{
			name:    "multiple links and surrounding text",
			content: "A & [Let's Talk](https://a.example) B [Let's Talk](https://b.example/?q=\"x\") C",
			contains: []string{
				"A &amp; <a href=\"https://a.example\"",
				"</a> B <a href=\"https://b.example/?q=&quot;x&quot;\"",
				"</a> C",
			},
		},
		{
			name:     "javascript url is not linked",
			content:  "[Let's Talk](javascript:alert(1))",
			want:     "[Let&#039;s Talk](javascript:alert(1))",
			excludes: []string{"<a "},
		},
		{
			name:     "url cannot break out of attribute",
			content:  `[Let's Talk](http://x/"onmouseover="alert(1))`,
			contains: []string{`href="http://x/&quot;onmouseover=&quot;alert(1"`},
		},
		{
			name:    "other markdown links stay literal",
			content: "[Click](http://x)",
			want:    "[Click](http://x)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderContent(tt.content)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			}
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestRenderContent_NoUnescapedAmpersands(t *testing.T) {
	got := renderContent("Fish & chips [Let's Talk](http://x/y?a=1&b=2) & more")

	// Every & must start an entity.
	for i := range len(got) {
		if got[i] != '&' {
			continue
		}
		rest := got[i:]
		ok := strings.HasPrefix(rest, "&amp;") || strings.HasPrefix(rest, "&lt;") ||
			strings.HasPrefix(rest, "&gt;") || strings.HasPrefix(rest, "&quot;") || strings.HasPrefix(rest, "&#039;")
		assert.True(t, ok, "unescaped ampersand at %d in %q", i, got)
	}
}

func TestRenderOutreachEmail_Signature(t *testing.T) {
	got := renderOutreachEmail("Hello", "", "O'Reilly & Co", "me@example.com")

	assert.Contains(t, got, "Best regards,<br>User<br>O&#039;Reilly &amp; Co<br>me@example.com</p>")
	assert.Contains(t, got, "Hello")
}

func TestSenderDisplayName(t *testing.T) {
	assert.Equal(t, "Ada from Engines", senderDisplayName("Ada", "Engines"))
	assert.Equal(t, "User from Company", senderDisplayName(" ", ""))
}

func TestRenderEnrollmentEmail_Escapes(t *testing.T) {
	got := renderEnrollmentEmail(EnrollmentRequest{
		Name:      "<script>",
		Email:     "a@example.com",
		UserEmail: "u@example.com",
		Reason:    "line1\nline2",
		Feedback:  "5 > 4",
	})

	assert.Contains(t, got, "<strong>Name:</strong> &lt;script&gt;")
	assert.Contains(t, got, "line1<br>line2")
	assert.Contains(t, got, "5 &gt; 4")
	assert.NotContains(t, got, "<script>")
}
