package crypto

import (
	"strings"
	"testing"
)

func TestCanonicalSHA256Hex(t *testing.T) {

	t.Run("key order does not change the checksum", func(t *testing.T) {
		a := []byte(`{"notificationType":"SUBSCRIBED","notificationUUID":"abc"}`)
		b := []byte(`{"notificationUUID":"abc","notificationType":"SUBSCRIBED"}`)

		sumA, err := CanonicalSHA256Hex(a)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sumB, err := CanonicalSHA256Hex(b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if sumA != sumB {
			t.Errorf("checksums differ for equivalent JSON: %s vs %s", sumA, sumB)
		}
	})

	t.Run("whitespace does not change the checksum", func(t *testing.T) {
		a := []byte(`{"a":1,"b":2}`)
		b := []byte("{\n  \"a\": 1,\n  \"b\": 2\n}")

		sumA, err := CanonicalSHA256Hex(a)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sumB, err := CanonicalSHA256Hex(b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if sumA != sumB {
			t.Errorf("checksums differ for equivalent JSON: %s vs %s", sumA, sumB)
		}
	})

	t.Run("different documents produce different checksums", func(t *testing.T) {
		sumA, err := CanonicalSHA256Hex([]byte(`{"a":1}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sumB, err := CanonicalSHA256Hex([]byte(`{"a":2}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sumA == sumB {
			t.Error("expected different checksums for different documents")
		}
	})

	t.Run("invalid JSON is rejected", func(t *testing.T) {
		_, err := CanonicalSHA256Hex([]byte("not json"))
		if err == nil {
			t.Fatal("expected error for invalid JSON, got nil")
		}
		if !strings.Contains(err.Error(), "canonicalize") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("checksum is 64 hex characters", func(t *testing.T) {
		sum, err := CanonicalSHA256Hex([]byte(`{}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sum) != 64 {
			t.Errorf("expected 64-character checksum, got %d: %s", len(sum), sum)
		}
	})
}
