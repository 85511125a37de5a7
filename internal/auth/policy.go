package auth

import (
	_ "embed"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"os"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Policy is the capability table: resource -> action -> required role.
type Policy map[string]map[string]string

// LoadPolicy parses path, or the embedded table when path is empty.
func LoadPolicy(path string) (Policy, error) {
	raw := defaultPolicy
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read policy")
		}
		raw = b
	}
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "parse policy")
	}
	return p, nil
}

func (p Policy) Role(resource, action string) (string, bool) {
	role, ok := p[resource][action]
	return role, ok && role != ""
}

// Allow denies by default: a pair missing from the table is forbidden.
func (p Policy) Allow(c *Claims, resource, action string) error {
	if c == nil {
		return apperr.New(apperr.KindUnauthorized, nil)
	}
	role, ok := p.Role(resource, action)
	if !ok || !c.HasRole(role) {
		return apperr.New(apperr.KindForbidden, nil)
	}
	return nil
}
