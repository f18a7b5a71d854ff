package core

import (
	"net/mail"
	"strings"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // text/plain content
		Footer  string

		// threading headers, only set on replies
		InReplyTo  string
		References []string

		TextContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently and returns once all of them were handed over.
		SendMessages(messages ...*EmailMessage)
	}
)

// Render assembles the text content from the body and the footer.
func (m *EmailMessage) Render() error {
	parts := make([]string, 0, 2)
	if body := strings.TrimRight(m.BodyStr, "\n"); body != "" {
		parts = append(parts, body)
	}
	if m.Footer != "" {
		parts = append(parts, strings.TrimRight(m.Footer, "\n"))
	}
	m.TextContent = strings.Join(parts, "\n\n")
	if m.TextContent != "" {
		m.TextContent += "\n"
	}
	return nil
}

// ReferencesHeader joins the reference chain, ending with the replied-to message id.
func (m *EmailMessage) ReferencesHeader() string {
	return strings.Join(m.References, " ")
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" }
