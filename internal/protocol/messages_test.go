package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseClientMessage_GetChallenge(t *testing.T) {
	input := []byte(`{"type":"captcha.get.challenge"}`)

	msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != TypeGetChallenge {
		t.Fatalf("expected type %q, got %q", TypeGetChallenge, msg.Type)
	}
	if msg.Params != "" {
		t.Errorf("expected empty params, got %q", msg.Params)
	}
}

func TestParseClientMessage_CheckResult(t *testing.T) {
	input := []byte(`{"type":"captcha.check.result","params":"aB3x9"}`)

	msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != TypeCheckResult {
		t.Fatalf("expected type %q, got %q", TypeCheckResult, msg.Type)
	}
	if msg.Params != "aB3x9" {
		t.Errorf("expected params %q, got %q", "aB3x9", msg.Params)
	}
}

func TestParseClientMessage_UnknownType(t *testing.T) {
	input := []byte(`{"type":"captcha.do.something"}`)

	if _, err := ParseClientMessage(input); err == nil {
		t.Fatal("expected an error for unknown message type, got nil")
	}
}

func TestParseClientMessage_ServerOnlyType(t *testing.T) {
	// Server->client types must not be accepted from the client.
	for _, typ := range []string{TypeChallenge, TypeExpired, TypeVerified, TypeNotVerified} {
		input := []byte(`{"type":"` + typ + `"}`)
		if _, err := ParseClientMessage(input); err == nil {
			t.Errorf("expected error for server-only type %q, got nil", typ)
		}
	}
}

func TestParseClientMessage_MissingType(t *testing.T) {
	input := []byte(`{"params":"no type field"}`)

	if _, err := ParseClientMessage(input); err == nil {
		t.Fatal("expected error for missing type field, got nil")
	}
}

func TestParseClientMessage_InvalidJSON(t *testing.T) {
	input := []byte(`{invalid json}`)

	if _, err := ParseClientMessage(input); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestNewServerMessage_WithParams(t *testing.T) {
	data, err := NewServerMessage(TypeVerified, "token-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result["type"] != TypeVerified {
		t.Errorf("expected type %q, got %v", TypeVerified, result["type"])
	}
	if result["params"] != "token-123" {
		t.Errorf("expected params %q, got %v", "token-123", result["params"])
	}
}

func TestNewServerMessage_OmitsEmptyParams(t *testing.T) {
	data, err := NewServerMessage(TypeNotVerified, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result["type"] != TypeNotVerified {
		t.Errorf("expected type %q, got %v", TypeNotVerified, result["type"])
	}
	if _, present := result["params"]; present {
		t.Error("expected params to be omitted for empty string")
	}
}
