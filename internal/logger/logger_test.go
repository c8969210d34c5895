package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsCredentials(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"jwt_token", "eyJhbGciOi.secretpart.sig",
		"api_key", "abc123",
		"project_id", "77",
	})
	if len(out) != 6 {
		t.Fatalf("length: want=6 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("token value: got=%v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("api_key value: got=%v", out[3])
	}
	if out[5] != "77" {
		t.Fatalf("plain value must pass through: got=%v", out[5])
	}
}

func TestSanitizeKVsHashesAuthSubject(t *testing.T) {
	out := sanitizeKVs([]interface{}{"auth_subject", "kunde-4711"})
	got, ok := out[1].(string)
	if !ok || !strings.HasPrefix(got, "hash:") {
		t.Fatalf("auth_subject should be hashed, got=%v", out[1])
	}
	if strings.Contains(got, "kunde-4711") {
		t.Fatalf("hashed value leaks the subject: %q", got)
	}

	again := sanitizeKVs([]interface{}{"auth_subject", "kunde-4711"})
	if again[1] != out[1] {
		t.Fatalf("hashing must be stable: %v vs %v", again[1], out[1])
	}
}

func TestSanitizeKVsKeepsDanglingKey(t *testing.T) {
	out := sanitizeKVs([]interface{}{"error", "boom", "orphan"})
	if len(out) != 3 {
		t.Fatalf("length: want=3 got=%d", len(out))
	}
	if out[2] != "orphan" {
		t.Fatalf("dangling key: got=%v", out[2])
	}
}
