package auth

import (
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func verifier() *Verifier {
	return &Verifier{Secret: []byte("dev-secret"), Issuer: "admin-portal", Audience: "admin-api"}
}

func TestVerifyRoundTrip(t *testing.T) {
	v := verifier()
	tok, err := v.Sign("ops@example.com", []string{"orders:read"}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	c, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.Subject != "ops@example.com" || !c.HasRole("orders:read") || c.HasRole("orders:write") {
		t.Fatalf("claims = %+v", c)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := verifier()
	other := &Verifier{Secret: []byte("dev-secret"), Issuer: "someone-else", Audience: "admin-api"}
	wrongIss, _ := other.Sign("x", nil, time.Minute)
	expired, _ := v.Sign("x", nil, -time.Hour)
	forged, _ := (&Verifier{Secret: []byte("nope"), Issuer: v.Issuer, Audience: v.Audience}).Sign("x", nil, time.Minute)

	for name, tok := range map[string]string{"issuer": wrongIss, "expired": expired, "signature": forged, "garbage": "a.b.c"} {
		if _, err := v.Verify(tok); !apperr.IsKind(err, apperr.KindUnauthorized) {
			t.Errorf("%s: err = %v", name, err)
		}
	}

	noSecret := &Verifier{Issuer: v.Issuer, Audience: v.Audience}
	good, _ := v.Sign("x", nil, time.Minute)
	if _, err := noSecret.Verify(good); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("empty secret: %v", err)
	}
}

func TestPolicyAllow(t *testing.T) {
	p, err := LoadPolicy("")
	if err != nil {
		t.Fatal(err)
	}
	c := &Claims{Roles: []string{"orders:read", "products:write"}}

	if err := p.Allow(c, "orders", ActionRead); err != nil {
		t.Fatalf("orders read: %v", err)
	}
	if err := p.Allow(c, "orders", ActionWrite); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("orders write: %v", err)
	}
	if err := p.Allow(c, "invoices", ActionRead); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("unknown resource: %v", err)
	}
	if err := p.Allow(&Claims{Roles: []string{"carts:write"}}, "carts", ActionWrite); err != nil {
		t.Fatalf("carts write: %v", err)
	}
	if err := p.Allow(nil, "orders", ActionRead); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("no claims: %v", err)
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("orders:\n  read: ops\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatal(err)
	}
	if role, _ := p.Role("orders", ActionRead); role != "ops" {
		t.Fatalf("role = %q", role)
	}
	if _, ok := p.Role("products", ActionRead); ok {
		t.Fatal("file should replace the embedded table")
	}
}

func TestCheckS2S(t *testing.T) {
	cases := []struct {
		header, key string
		ok          bool
	}{
		{"Bearer k1", "k1", true},
		{"bearer   k1", "k1", true},
		{"k1", "k1", true},
		{"Bearer k2", "k1", false},
		{"", "k1", false},
		{"anything", "", true},
	}
	for _, tc := range cases {
		err := CheckS2S(tc.header, tc.key)
		if (err == nil) != tc.ok {
			t.Errorf("CheckS2S(%q, %q) = %v", tc.header, tc.key, err)
		}
	}
}

func TestBearerToken(t *testing.T) {
	if got := BearerToken("Bearer abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := BearerToken("Basic abc"); got != "" {
		t.Fatalf("got %q", got)
	}
}
