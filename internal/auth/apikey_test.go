package auth

import "testing"

func TestHashAndVerifySecret(t *testing.T) {
	t.Parallel()

	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	if secret == "" {
		t.Fatalf("expected non-empty secret")
	}

	hash, err := HashSecret(secret)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !VerifySecret(secret, hash) {
		t.Fatalf("expected secret verification to succeed")
	}
	if VerifySecret("wrong-secret", hash) {
		t.Fatalf("did not expect wrong secret to verify")
	}
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	keyID, secret, ok := ParseKey(" 42.abc-def ")
	if !ok {
		t.Fatalf("expected key to parse")
	}
	if keyID != 42 || secret != "abc-def" {
		t.Fatalf("unexpected parse result: %d %q", keyID, secret)
	}

	for _, raw := range []string{"", "42", ".secret", "0.secret", "-1.secret", "abc.secret"} {
		if _, _, ok := ParseKey(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestFormatKeyRoundTrip(t *testing.T) {
	t.Parallel()

	raw := FormatKey(7, "s3cr3t")
	keyID, secret, ok := ParseKey(raw)
	if !ok || keyID != 7 || secret != "s3cr3t" {
		t.Fatalf("unexpected round trip: %q -> %d %q %v", raw, keyID, secret, ok)
	}
}
