package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"gopkg.in/gomail.v2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (r *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m...)
	return nil
}

func TestSendBuildsMultipartMessage(t *testing.T) {
	dialer := &recordingDialer{}
	m := &Mailer{from: "loja@example.com", dialer: dialer}

	err := m.Send(context.Background(), Message{
		To:      " ana@example.com ",
		Subject: "Pedido #1001 confirmado",
		Text:    "Obrigado pela compra",
		HTML:    "<p>Obrigado pela compra</p>",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(dialer.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(dialer.sent))
	}
	msg := dialer.sent[0]
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "ana@example.com" {
		t.Fatalf("unexpected recipient %v", got)
	}
	if got := msg.GetHeader("From"); len(got) != 1 || got[0] != "loja@example.com" {
		t.Fatalf("unexpected sender %v", got)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	body := buf.String()
	for _, want := range []string{"text/plain", "text/html", "Obrigado pela compra"} {
		if !strings.Contains(body, want) {
			t.Fatalf("rendered message missing %q", want)
		}
	}
}

func TestSendValidation(t *testing.T) {
	m := &Mailer{from: "loja@example.com", dialer: &recordingDialer{}}
	cases := map[string]Message{
		"no recipient": {Subject: "s", Text: "t"},
		"no subject":   {To: "a@example.com", Text: "t"},
		"no body":      {To: "a@example.com", Subject: "s"},
	}
	for name, msg := range cases {
		if err := m.Send(context.Background(), msg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSendPropagatesRelayError(t *testing.T) {
	relayErr := errors.New("connection refused")
	m := &Mailer{from: "loja@example.com", dialer: &recordingDialer{err: relayErr}}
	err := m.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t"})
	if !errors.Is(err, relayErr) {
		t.Fatalf("expected relay error, got %v", err)
	}
}

func TestSendHonoursCancelledContext(t *testing.T) {
	dialer := &recordingDialer{}
	m := &Mailer{from: "loja@example.com", dialer: dialer}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Send(ctx, Message{To: "a@example.com", Subject: "s", Text: "t"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(dialer.sent) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestNewWithoutSMTPIsDisabled(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})
	sender := New(config.SMTPConfig{}, logg)
	if _, ok := sender.(Disabled); !ok {
		t.Fatalf("expected disabled sender, got %T", sender)
	}
	if err := sender.Send(context.Background(), Message{To: "a@example.com", Subject: "s", Text: "t"}); err != nil {
		t.Fatalf("disabled sender must not fail: %v", err)
	}

	sender = New(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "loja@example.com"}, logg)
	if _, ok := sender.(*Mailer); !ok {
		t.Fatalf("expected smtp mailer, got %T", sender)
	}
}
