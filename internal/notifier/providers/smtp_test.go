package providers

import (
	"errors"
	"mime"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageEncodesSubject(t *testing.T) {
	date := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	msg := string(buildMessage("bot@example.com", "me@example.com", "제목 테스트", "<p>hi</p>", "hi", date))

	head, _, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.NotContains(t, head, "제목")

	var subject string
	for _, line := range strings.Split(head, "\r\n") {
		if v, ok := strings.CutPrefix(line, "Subject: "); ok {
			subject = v
		}
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	assert.Equal(t, "제목 테스트", decoded)

	assert.Contains(t, msg, "Content-Type: text/plain; charset=\"utf-8\"\r\n\r\nhi\r\n")
	assert.Contains(t, msg, "<p>hi</p>")
	assert.True(t, strings.HasSuffix(msg, "--"+boundary+"--\r\n"))
}

func TestSendUsesConfiguredServer(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "user", "secret", "bot@example.com")

	var gotAddr string
	var gotAuth smtp.Auth
	var gotTo []string
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo = addr, a, to
		return nil
	}

	require.NoError(t, s.Send("me@example.com", "s", "h", "p"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"me@example.com"}, gotTo)
}

func TestSendWithoutAuth(t *testing.T) {
	s := NewSMTPSender("localhost", 25, "", "", "bot@example.com")
	boom := errors.New("relay denied")
	s.send = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		assert.Nil(t, a)
		return boom
	}

	assert.ErrorIs(t, s.Send("me@example.com", "s", "h", "p"), boom)
}
