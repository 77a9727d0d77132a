// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

/*
Package notify delivers one-time codes to users over email.

The rest of the system treats delivery as fire-and-forget: a failed send is
logged and swallowed by the caller, never surfaced to the end user. This keeps
provider outages from leaking into API responses.
*/
package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Sender is the external-collaborator contract for OTP delivery.
//
// link is optional; the password-reset flow passes a verification link while
// the registration flow passes an empty string.
type Sender interface {
	Send(ctx context.Context, toEmail string, otp int, link string) error
}

// SMTPSender implements [Sender] using an authenticated SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a new SMTP-backed [Sender].
func NewSMTPSender(host string, port int, username, password, fromEmail string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   fromEmail,
	}
}

// Send emails the OTP (and optional verification link) to the destination
// address. The message body intentionally never states which account action
// triggered it beyond the subject line.
//
// gomail cannot abort a dial in flight, so cancellation is only honored
// before the SMTP conversation starts.
func (sender *SMTPSender) Send(ctx context.Context, toEmail string, otp int, link string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify: send aborted: %w", err)
	}

	message := gomail.NewMessage()
	message.SetHeader("From", sender.from)
	message.SetHeader("To", toEmail)
	// The legacy mailer used this subject for every OTP mail, registration
	// included. Users filter on it, so it stays.
	message.SetHeader("Subject", "Password Reset OTP")

	body := fmt.Sprintf(`
		<p>Your OTP is: <strong>%d</strong>. It will expire in 6 hours.</p>
	`, otp)

	if link != "" {
		body += fmt.Sprintf(`
		<p>Click this link to verify your OTP: <a href="%s">%s</a></p>
	`, link, link)
	}

	message.SetBody("text/html", body)

	if err := sender.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("notify: failed to send OTP email: %w", err)
	}

	return nil
}
