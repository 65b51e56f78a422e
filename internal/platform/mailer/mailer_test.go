package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTemplateEngine_RenderBuiltIn(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render(TemplateReminder, map[string]string{
		"name":  "Jane",
		"date":  "2025-06-10",
		"start": "09:00 AM",
		"end":   "09:30 AM",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if subject != "Appointment Reminder for Jane" {
		t.Errorf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "2025-06-10") || !strings.Contains(body, "09:00 AM") {
		t.Errorf("body missing substitutions: %q", body)
	}
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, _, err := e.Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTemplateEngine_MissingKeysLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render(TemplateBooked, map[string]string{"name": "Jane"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(body, "{{date}}") {
		t.Errorf("expected unresolved placeholder to remain, got %q", body)
	}
}

func TestMailer_SendSuccess(t *testing.T) {
	sender := &MockSender{}
	m := New(sender, NewTemplateEngine(), zerolog.Nop())

	ok := m.Send(context.Background(), TemplateBooked, "jane@example.com", map[string]string{
		"name": "Jane", "date": "2025-06-10", "start": "09:00 AM",
	})
	if !ok {
		t.Fatal("expected Send to report success")
	}

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(calls))
	}
	if calls[0].To != "jane@example.com" {
		t.Errorf("unexpected recipient %q", calls[0].To)
	}
}

func TestMailer_SendFailureDoesNotPropagate(t *testing.T) {
	sender := &MockSender{ShouldFail: true, FailError: "smtp down"}
	m := New(sender, NewTemplateEngine(), zerolog.Nop())

	ok := m.Send(context.Background(), TemplateBooked, "jane@example.com", nil)
	if ok {
		t.Fatal("expected Send to report failure")
	}
}

func TestMailer_UnknownTemplateReportsFalse(t *testing.T) {
	sender := &MockSender{}
	m := New(sender, NewTemplateEngine(), zerolog.Nop())

	if m.Send(context.Background(), "nope", "jane@example.com", nil) {
		t.Fatal("expected false for unknown template")
	}
	if len(sender.Calls()) != 0 {
		t.Fatal("no delivery should be attempted for an unknown template")
	}
}
