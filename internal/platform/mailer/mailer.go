// Package mailer renders and delivers transactional email for the clinic.
// Delivery failures are terminal here: they are logged and reported as a
// boolean so callers never fail a booking or a sweep over email trouble.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Sender is the low-level delivery channel.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Template defines a reusable email template.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateEngine manages email templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// Built-in template ids.
const (
	TemplateReminder  = "appointment-reminder"
	TemplateBooked    = "appointment-booked"
	TemplateCanceled  = "appointment-canceled"
	TemplateCompleted = "appointment-completed"
)

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateReminder,
			Name:    "Appointment Reminder",
			Subject: "Appointment Reminder for {{name}}",
			Body:    "Dear {{name}}, this is a reminder of your appointment on {{date}} from {{start}} to {{end}}.",
		},
		{
			ID:      TemplateBooked,
			Name:    "Appointment Booked",
			Subject: "Appointment Confirmed",
			Body:    "Dear {{name}}, your appointment on {{date}} at {{start}} is confirmed.",
		},
		{
			ID:      TemplateCanceled,
			Name:    "Appointment Canceled",
			Subject: "Appointment Canceled",
			Body:    "Dear {{name}}, the appointment on {{date}} at {{start}} has been canceled.",
		},
		{
			ID:      TemplateCompleted,
			Name:    "Appointment Completed",
			Subject: "Thank You for Your Visit",
			Body:    "Dear {{name}}, your appointment on {{date}} is now marked completed.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using
// the supplied data map. Keys present in the template but absent from data
// are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Mailer renders a template and hands it to the sender. Send never returns
// an error: a failed delivery is logged and reported as false.
type Mailer struct {
	sender    Sender
	templates *TemplateEngine
	logger    zerolog.Logger
}

func New(sender Sender, templates *TemplateEngine, logger zerolog.Logger) *Mailer {
	return &Mailer{sender: sender, templates: templates, logger: logger}
}

// Send renders templateID with data and delivers it to recipient.
func (m *Mailer) Send(ctx context.Context, templateID, recipient string, data map[string]string) bool {
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		m.logger.Error().Err(err).Str("template", templateID).Msg("render email")
		return false
	}
	if err := m.sender.SendEmail(ctx, recipient, subject, body); err != nil {
		m.logger.Error().Err(err).
			Str("template", templateID).
			Str("recipient", recipient).
			Msg("send email")
		return false
	}
	return true
}

// SMTPSender delivers mail over plain SMTP with optional auth.
type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func (s *SMTPSender) SendEmail(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	msg := []byte("From: " + s.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body + "\r\n")

	var a smtp.Auth
	if s.User != "" {
		a = smtp.PlainAuth("", s.User, s.Password, s.Host)
	}
	return smtp.SendMail(addr, a, s.From, []string{to}, msg)
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockSender is a recording test double for Sender.
type MockSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
