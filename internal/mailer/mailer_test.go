package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPicksTransport(t *testing.T) {
	log := zap.NewNop().Sugar()

	assert.IsType(t, &ResendSender{}, New(Options{ResendAPIKey: "re_test"}, log))
	assert.IsType(t, &SMTPSender{}, New(Options{SMTPHost: "smtp.example.com", SMTPPort: "587"}, log))
	assert.IsType(t, &LogSender{}, New(Options{}, log))
}

func TestLogSender(t *testing.T) {
	s := New(Options{}, zap.NewNop().Sugar())
	assert.NoError(t, s.Send(context.Background(), Message{To: "ana@example.com", Subject: "hola"}))
}

func TestPasswordResetEscapesLink(t *testing.T) {
	msg := PasswordReset("ana@example.com", `https://pulso.app/reset?token=a&x="b"`)
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Contains(t, msg.Text, `token=a&x="b"`)
	assert.Contains(t, msg.HTML, "token=a&amp;x=&#34;b&#34;")
}

func TestBuildMIME(t *testing.T) {
	raw := string(buildMIME("Pulso <no-reply@pulso.app>", Message{To: "ana@example.com", Subject: "s", Text: "hola"}))
	assert.True(t, strings.HasPrefix(raw, "From: Pulso <no-reply@pulso.app>\r\n"))
	assert.Contains(t, raw, "text/plain")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nhola"))
	assert.Equal(t, "no-reply@pulso.app", envelopeAddress("Pulso <no-reply@pulso.app>"))
	assert.Equal(t, "a@b.co", envelopeAddress("a@b.co"))
}

func TestBuildMIMEEncodesSubject(t *testing.T) {
	msg := PasswordReset("ana@example.com", "https://pulso.app/reset-password?token=t")
	raw := string(buildMIME("Pulso <no-reply@pulso.app>", msg))

	header, _, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)
	assert.Contains(t, header, "Subject: =?utf-8?q?Restablece_tu_contrase=C3=B1a_de_Pulso?=\r\n")
	assert.NotContains(t, header, "ñ")

	plain := string(buildMIME("a@b.co", Message{To: "ana@example.com", Subject: "hola", Text: "x"}))
	assert.Contains(t, plain, "Subject: hola\r\n")
}
