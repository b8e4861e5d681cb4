package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOTPMessage(t *testing.T) {
	msg, err := OTPMessage("u@x.com", "login", "123456", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "u@x.com", msg.To)
	assert.Equal(t, "Your login code", msg.Subject)
	assert.Contains(t, msg.Text, "123456")
	assert.Contains(t, msg.Text, "5 minutes")
	assert.Contains(t, msg.HTML, "123456")
}

func TestSMTPSenderRendersMultipart(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "no-reply@example.com", Username: "u", Password: "p"})
	require.NoError(t, err)

	var gotAddr string
	var gotTo []string
	var gotBody string
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotBody = addr, to, string(msg)
		assert.Equal(t, "no-reply@example.com", from)
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Message{To: "u@x.com", Subject: "Hi", Text: "plain", HTML: "<b>rich</b>"}))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"u@x.com"}, gotTo)
	assert.Contains(t, gotBody, "multipart/alternative")
	assert.Contains(t, gotBody, "plain")
	assert.Contains(t, gotBody, "<b>rich</b>")
	assert.True(t, strings.HasPrefix(gotBody, "From: no-reply@example.com\r\n"))
}

func TestSMTPSenderPropagatesFailure(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 25, From: "a@b.c"})
	require.NoError(t, err)
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("550 mailbox unavailable")
	}
	err = s.Send(context.Background(), Message{To: "u@x.com", Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550")
}

func TestSMTPSenderRequiresConfig(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"})
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewLogSender(zap.New(core))
	require.NoError(t, s.Send(context.Background(), Message{To: "u@x.com", Subject: "s", Text: "code 1"}))
	require.Equal(t, 1, logs.FilterMessage("email_logged").Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Send(ctx, Message{To: "u@x.com"}))
}
