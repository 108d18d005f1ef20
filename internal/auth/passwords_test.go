package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_NonDeterministic(t *testing.T) {
	p := "correct horse battery staple"
	h1, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected different hashes for same password")
	}
}

func TestHashPassword_SelfDescribing(t *testing.T) {
	h, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(h, "$argon2id$v=19$m=65536,t=4,p=1$") {
		t.Fatalf("unexpected hash prefix: %s", h)
	}
}

func TestVerifyPassword_RoundTrip(t *testing.T) {
	passwords := []string{"secret1", "correct horse battery staple", "ünïcødé-pass", "  spaced  ", "x"}
	for _, p := range passwords {
		h, err := HashPassword(p)
		if err != nil {
			t.Fatalf("HashPassword(%q): %v", p, err)
		}
		if !VerifyPassword(h, p) {
			t.Fatalf("expected %q to verify", p)
		}
		if VerifyPassword(h, p+"x") {
			t.Fatalf("expected %q to fail verification", p+"x")
		}
		if VerifyPassword(h, strings.ToUpper(p)+"!") {
			t.Fatalf("expected altered password to fail verification")
		}
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=4,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=4,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=abc,t=4,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=4,p=1$!!!$a2V5",
		"$argon2id$v=19$m=65536,t=4,p=1$$",
		"$argon2id$v=19$m=0,t=4,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=99999999,t=4,p=1$c2FsdA$a2V5",
	}
	for _, h := range cases {
		if VerifyPassword(h, "secret1") {
			t.Fatalf("expected malformed hash %q to fail", h)
		}
	}
}
