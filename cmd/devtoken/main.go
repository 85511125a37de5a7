// Command devtoken mints an HS256 admin token for local use.
package main

import (
	"flag"
	"fmt"
	"github.com/ariefcatur/go-catalog-orders/internal/auth"
	"github.com/ariefcatur/go-catalog-orders/internal/config"
	"github.com/joho/godotenv"
	"os"
	"strings"
	"time"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load("devtoken", "")

	roles := flag.String("roles", "products:read,products:write", "comma separated roles")
	sub := flag.String("sub", "dev@local", "token subject")
	ttl := flag.Duration("ttl", 30*time.Minute, "token lifetime")
	flag.Parse()

	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET missing")
		os.Exit(1)
	}
	v := &auth.Verifier{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience}
	tok, err := v.Sign(*sub, strings.Split(*roles, ","), *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
