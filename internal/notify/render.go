// ABOUTME: Template rendering for OTP and password reset emails.
// ABOUTME: Templates parsed once at init from embedded FS; rendered per delivery.
package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltpl "html/template"
	"strings"
	texttpl "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// OTPTemplateData feeds the signup verification email.
type OTPTemplateData struct {
	Username   string
	Code       string
	TTLMinutes int
}

// ResetTemplateData feeds the password reset email.
type ResetTemplateData struct {
	Username   string
	ResetURL   string
	TTLMinutes int
}

// Parsed templates — one per file to avoid {{define}} namespace collisions.
var (
	otpHTML   *htmltpl.Template
	otpText   *texttpl.Template
	resetHTML *htmltpl.Template
	resetText *texttpl.Template
)

func init() {
	otpHTML = htmltpl.Must(htmltpl.New("").ParseFS(templateFS, "templates/email_otp.html.tmpl"))
	otpText = texttpl.Must(texttpl.New("").ParseFS(templateFS, "templates/email_otp.txt.tmpl"))
	resetHTML = htmltpl.Must(htmltpl.New("").ParseFS(templateFS, "templates/email_reset.html.tmpl"))
	resetText = texttpl.Must(texttpl.New("").ParseFS(templateFS, "templates/email_reset.txt.tmpl"))
}

// RenderOTP renders a signup verification email. Returns subject, HTML body,
// and plaintext body.
func RenderOTP(data OTPTemplateData) (string, string, string, error) {
	return renderPair(otpHTML, otpText, data)
}

// RenderReset renders a password reset email. Returns subject, HTML body,
// and plaintext body.
func RenderReset(data ResetTemplateData) (string, string, string, error) {
	return renderPair(resetHTML, resetText, data)
}

func renderPair(html *htmltpl.Template, text *texttpl.Template, data any) (string, string, string, error) {
	// Render subject from the text template's "subject" block.
	var subjectBuf bytes.Buffer
	if err := text.ExecuteTemplate(&subjectBuf, "subject", data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	subject := sanitizeSubject(subjectBuf.String())

	var htmlBuf bytes.Buffer
	if err := html.ExecuteTemplate(&htmlBuf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}

	var textBuf bytes.Buffer
	if err := text.ExecuteTemplate(&textBuf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}

	return subject, htmlBuf.String(), textBuf.String(), nil
}

// sanitizeSubject strips CR/LF to prevent email header injection.
func sanitizeSubject(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
