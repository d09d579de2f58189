package application

import (
	"net/url"
	"regexp"
	"strings"
)

// ctaPattern matches the one markup the composer supports: [Let's Talk](url).
var ctaPattern = regexp.MustCompile(`\[Let's Talk\]\((.*?)\)`)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

const ctaStyle = "background-color: #3b82f6; color: white; padding: 12px 24px; " +
	"text-decoration: none; border-radius: 8px; display: inline-block;"

// escapeHTML escapes the five characters significant in HTML text and
// attribute values.
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// escapeText escapes s and turns line breaks into <br>.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(escapeHTML(s), "\n", "<br>")
}

// renderContent converts composer text to HTML. CTA links are cut out of the
// raw text before escaping so each is escaped exactly once: surrounding text
// as text, the URL as an attribute value. Links whose scheme is not http or
// https are left as escaped literal text.
func renderContent(content string) string {
	var b strings.Builder
	last := 0
	for _, m := range ctaPattern.FindAllStringSubmatchIndex(content, -1) {
		b.WriteString(escapeText(content[last:m[0]]))

		link := content[m[2]:m[3]]
		if isWebURL(link) {
			b.WriteString(`<a href="` + escapeHTML(link) + `" style="` + ctaStyle + `">Let's Talk</a>`)
		} else {
			b.WriteString(escapeText(content[m[0]:m[1]]))
		}
		last = m[1]
	}
	b.WriteString(escapeText(content[last:]))
	return b.String()
}

func isWebURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// senderDisplayName is the From display name: "<name> from <company>".
func senderDisplayName(name, company string) string {
	return orDefault(name, "User") + " from " + orDefault(company, "Company")
}

// renderOutreachEmail builds the HTML body of a cold email with its
// signature block.
func renderOutreachEmail(content, fromName, fromCompany, fromEmail string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">`)
	b.WriteString(`<div style="white-space: pre-line; line-height: 1.6; color: #333; margin-bottom: 30px;">`)
	b.WriteString(renderContent(content))
	b.WriteString(`</div>`)
	b.WriteString(`<div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; color: #666; font-size: 12px;">`)
	b.WriteString(`<p>Best regards,<br>`)
	b.WriteString(escapeHTML(orDefault(fromName, "User")) + `<br>`)
	b.WriteString(escapeHTML(orDefault(fromCompany, "Company")) + `<br>`)
	b.WriteString(escapeHTML(fromEmail) + `</p>`)
	b.WriteString(`</div></div>`)
	return b.String()
}

// renderEnrollmentEmail builds the HTML body sent to the enrollment inbox.
func renderEnrollmentEmail(req EnrollmentRequest) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">`)
	b.WriteString(`<h2 style="color: #3b82f6;">New Enrollment for Lifetime Free Access</h2>`)
	b.WriteString(`<div style="background-color: #f3f4f6; padding: 20px; border-radius: 8px; margin: 20px 0;">`)
	b.WriteString(`<h3 style="margin-top: 0;">Applicant Details:</h3>`)
	b.WriteString(`<p><strong>Name:</strong> ` + escapeHTML(req.Name) + `</p>`)
	b.WriteString(`<p><strong>Email:</strong> ` + escapeHTML(req.Email) + `</p>`)
	b.WriteString(`<p><strong>User Account:</strong> ` + escapeHTML(req.UserEmail) + `</p>`)
	b.WriteString(`</div>`)
	b.WriteString(`<h3>Why they need COLDrm:</h3>`)
	b.WriteString(`<p style="background-color: #f9fafb; padding: 15px; border-left: 4px solid #3b82f6;">` + escapeText(req.Reason) + `</p>`)
	b.WriteString(`<h3>Feedback &amp; Suggestions:</h3>`)
	b.WriteString(`<p style="background-color: #f9fafb; padding: 15px; border-left: 4px solid #10b981;">` + escapeText(req.Feedback) + `</p>`)
	b.WriteString(`<hr style="margin: 30px 0; border: none; border-top: 1px solid #e5e7eb;">`)
	b.WriteString(`<p style="color: #6b7280; font-size: 12px;">This enrollment was submitted from COLDrm application.</p>`)
	b.WriteString(`</div>`)
	return b.String()
}
