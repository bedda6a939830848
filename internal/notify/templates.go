// Package notify renders and delivers transactional email.
package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/vendorflow/vendorflow/web"
)

const (
	subjectOTP             = "Password reset code - VendorFlow"
	subjectPasswordChanged = "Password changed - VendorFlow"
)

// Message is a rendered email with both a plain text and an HTML body.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Templates renders the mail bodies embedded in the web package.
type Templates struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// LoadTemplates parses every mail template once.
func LoadTemplates() (*Templates, error) {
	html, err := htmltemplate.ParseFS(web.MailTemplates, "templates/mail/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html mail templates: %w", err)
	}
	text, err := texttemplate.ParseFS(web.MailTemplates, "templates/mail/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text mail templates: %w", err)
	}
	return &Templates{html: html, text: text}, nil
}

type otpView struct {
	Username string
	Code     string
	ValidFor string
}

type passwordChangedView struct {
	Username  string
	ChangedAt string
}

// OTP renders the password reset code email.
func (t *Templates) OTP(to, username, code string, validFor time.Duration) (Message, error) {
	return t.render(to, subjectOTP, "otp", otpView{Username: username, Code: code, ValidFor: humanMinutes(validFor)})
}

// PasswordChanged renders the reset confirmation email.
func (t *Templates) PasswordChanged(to, username string, at time.Time) (Message, error) {
	view := passwordChangedView{Username: username, ChangedAt: at.UTC().Format("02 Jan 2006 15:04 MST")}
	return t.render(to, subjectPasswordChanged, "password_changed", view)
}

func (t *Templates) render(to, subject, name string, data any) (Message, error) {
	var text, html bytes.Buffer
	if err := t.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := t.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return Message{To: to, Subject: subject, Text: text.String(), HTML: html.String()}, nil
}

func humanMinutes(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
