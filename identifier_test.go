package guardkit

import (
	"net/http/httptest"
	"testing"
)

func TestClientIPPrecedence(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:5000"

	if got := ClientIP(r); got != "192.0.2.10" {
		t.Fatalf("expected remote addr host, got %q", got)
	}

	r.Header.Set("X-Real-IP", "198.51.100.9")
	if got := ClientIP(r); got != "198.51.100.9" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}

	// First hop of X-Forwarded-For wins over everything.
	r.Header.Set("X-Forwarded-For", "203.0.113.4, 198.51.100.9")
	if got := ClientIP(r); got != "203.0.113.4" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}

func TestClientIdentifierStability(t *testing.T) {
	a := httptest.NewRequest("GET", "/", nil)
	a.RemoteAddr = "192.0.2.10:5000"
	a.Header.Set("User-Agent", "agent-a")

	// Same client, different ephemeral port: identical identifier.
	b := httptest.NewRequest("GET", "/", nil)
	b.RemoteAddr = "192.0.2.10:6000"
	b.Header.Set("User-Agent", "agent-a")

	if ClientIdentifier(a) != ClientIdentifier(b) {
		t.Fatal("identifier must not depend on the source port")
	}

	c := httptest.NewRequest("GET", "/", nil)
	c.RemoteAddr = "192.0.2.10:5000"
	c.Header.Set("User-Agent", "agent-b")

	if ClientIdentifier(a) == ClientIdentifier(c) {
		t.Fatal("different user agents must not share an identifier")
	}

	d := httptest.NewRequest("GET", "/", nil)
	d.RemoteAddr = "192.0.2.11:5000"
	d.Header.Set("User-Agent", "agent-a")

	if ClientIdentifier(a) == ClientIdentifier(d) {
		t.Fatal("different IPs must not share an identifier")
	}
}

func TestClientIdentifierShape(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:5000"

	id := ClientIdentifier(r)
	if len(id) != identifierSize*2 {
		t.Fatalf("expected %d hex chars, got %d", identifierSize*2, len(id))
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("non-hex character %q in identifier", c)
		}
	}
}
