package captcha

import (
	"testing"
	"time"

	"github.com/dodocap/captcha-server/internal/protocol"
)

func TestHandler_ChallengeThenVerify(t *testing.T) {
	sess, sender, registry := newTestSession(t, time.Minute)
	h := NewHandler(sess)

	h.HandleMessage([]byte(`{"type":"captcha.get.challenge"}`))

	challenges := sender.byType(protocol.TypeChallenge)
	if len(challenges) != 1 {
		t.Fatalf("expected one challenge message, got %d", len(challenges))
	}
	if challenges[0].Params == "" {
		t.Fatal("expected a non-empty challenge document")
	}

	// The code is alphanumeric, so it can be spliced into the JSON directly.
	h.HandleMessage([]byte(`{"type":"captcha.check.result","params":"` + pendingCode(sess) + `"}`))

	verified := sender.byType(protocol.TypeVerified)
	if len(verified) != 1 {
		t.Fatalf("expected one verified message, got %d", len(verified))
	}
	if verified[0].Params == "" {
		t.Fatal("expected verified message to carry a token")
	}
	if !registry.Contains(verified[0].Params) {
		t.Error("expected the transmitted token to be in the registry")
	}
}

func TestHandler_WrongSolution(t *testing.T) {
	sess, sender, _ := newTestSession(t, time.Minute)
	h := NewHandler(sess)

	h.HandleMessage([]byte(`{"type":"captcha.get.challenge"}`))
	h.HandleMessage([]byte(`{"type":"captcha.check.result","params":"wrong"}`))

	notVerified := sender.byType(protocol.TypeNotVerified)
	if len(notVerified) != 1 {
		t.Fatalf("expected one not-verified message, got %d", len(notVerified))
	}
	if notVerified[0].Params != "" {
		t.Error("expected not-verified message to carry no payload")
	}
}

func TestHandler_SubmitWithoutChallenge(t *testing.T) {
	sess, sender, _ := newTestSession(t, time.Minute)
	h := NewHandler(sess)

	h.HandleMessage([]byte(`{"type":"captcha.check.result","params":"abc12"}`))

	if n := len(sender.byType(protocol.TypeNotVerified)); n != 1 {
		t.Fatalf("expected one not-verified message, got %d", n)
	}
}

func TestHandler_MalformedMessagesAreDropped(t *testing.T) {
	sess, sender, _ := newTestSession(t, time.Minute)
	h := NewHandler(sess)

	h.HandleMessage([]byte(`{"type":"captcha.get.challenge"}`))
	code := pendingCode(sess)

	// None of these may produce a reply or disturb session state.
	h.HandleMessage([]byte(`{not json`))
	h.HandleMessage([]byte(`{"params":"missing type"}`))
	h.HandleMessage([]byte(`{"type":"captcha.verified","params":"spoof"}`))

	sender.mu.Lock()
	total := len(sender.msgs)
	sender.mu.Unlock()
	if total != 1 {
		t.Fatalf("expected only the challenge reply, got %d messages", total)
	}
	if pendingCode(sess) != code {
		t.Error("malformed messages must not change the pending code")
	}
}
