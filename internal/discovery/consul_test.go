package discovery

import (
	"context"
	"github.com/rs/zerolog"
	"os"
	"testing"
)

func TestHostPort(t *testing.T) {
	h, p, err := hostPort("10.0.0.5:8082")
	if err != nil || h != "10.0.0.5" || p != 8082 {
		t.Fatalf("hostPort = %q %d %v", h, p, err)
	}
	h, p, err = hostPort(":8081")
	if err != nil || h == "" || p != 8081 {
		t.Fatalf("empty host should be filled: %q %d %v", h, p, err)
	}
	if _, _, err := hostPort("8081"); err == nil {
		t.Fatal("expected error for address without port")
	}
}

func TestRegisterAndResolve(t *testing.T) {
	addr := os.Getenv("CONSUL_ADDR")
	if addr == "" {
		t.Skipf("CONSUL_ADDR not set, skipping consul integration test")
	}
	c, err := NewConsul(addr, zerolog.Nop())
	if err != nil {
		t.Skipf("consul unavailable: %v", err)
	}
	reg := Registration{Name: "catalog-test", ID: "catalog-test-1", Addr: "127.0.0.1:18082"}
	if err := c.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	defer func() { _ = c.Deregister(reg.ID) }()

	// the health check never passes for a fake port, so the resolver sees no instance
	if _, err := c.Resolver("catalog-test").BaseURL(context.Background()); err == nil {
		t.Fatal("expected no healthy instance")
	}
}
