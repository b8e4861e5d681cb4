// Package email delivers one-time passcodes and other account messages.
//
// SMTPSender talks to a real relay; LogSender writes the message to the
// log instead and is meant for local development only.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Message is one outbound email. HTML is optional.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

var otpHTML = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <p>Your verification code is:</p>
  <p style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</p>
  <p>The code expires in {{.Minutes}} minutes. If you did not request it, you can ignore this email.</p>
</body>
</html>`))

// OTPMessage renders the passcode email for action.
func OTPMessage(to, action, code string, ttl time.Duration) (Message, error) {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	var html bytes.Buffer
	if err := otpHTML.Execute(&html, struct {
		Code    string
		Minutes int
	}{code, minutes}); err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your %s code", strings.ReplaceAll(action, "_", " ")),
		Text:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes),
		HTML:    html.String(),
	}, nil
}

// LogSender logs messages instead of sending them.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info("email_logged",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}
