package security

import (
	"strings"
	"testing"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if !strings.HasPrefix(encoded, "argon2id$") {
		t.Fatalf("expected argon2id encoding, got %s", encoded)
	}

	if !VerifyPassword("correct horse battery staple", encoded) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("wrong password", encoded) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	first, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if first == second {
		t.Fatalf("expected distinct encodings for identical passwords")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	cases := []string{
		"",
		"not-a-hash",
		"argon2id$v=19$garbage",
		"argon2id$v=19$m=65536,t=3,p=4$!!!$AAA",
		"bcrypt$whatever",
	}

	for _, encoded := range cases {
		if VerifyPassword("anything", encoded) {
			t.Fatalf("expected malformed hash %q to fail verification", encoded)
		}
	}
}
