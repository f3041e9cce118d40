package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNotConfigured(t *testing.T) {
	m := NewSMTP(Config{}, nil)
	assert.False(t, m.Configured())
	assert.ErrorIs(t, m.Send(context.Background(), Message{To: "a@example.com"}), ErrNotConfigured)
}

func TestSendBuildsMessage(t *testing.T) {
	m := NewSMTP(Config{Host: "smtp.example.com", Port: 587, From: "crew@example.com", FromName: "Crew"}, nil)
	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}
	require.NoError(t, m.Send(context.Background(), Message{To: "lead@example.com", Subject: "Hello", Body: "line one\nline two"}))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"lead@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "To: lead@example.com\r\n")
	assert.Contains(t, string(gotMsg), "Subject: Hello\r\n")
	assert.Contains(t, string(gotMsg), "line one\r\nline two")

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 busy") }
	assert.Error(t, m.Send(context.Background(), Message{To: "lead@example.com"}))
}
