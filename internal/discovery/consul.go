// Package discovery registers services in Consul and resolves peers from it.
package discovery

import (
	"context"
	"fmt"
	"github.com/hashicorp/consul/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"net"
	"strconv"
)

type Consul struct {
	client *api.Client
	log    zerolog.Logger
}

type Registration struct {
	Name string
	ID   string
	Addr string // host:port or :port the HTTP server listens on
	Tags []string
}

func NewConsul(addr string, log zerolog.Logger) (*Consul, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "consul client")
	}
	if _, err := client.Agent().Self(); err != nil {
		return nil, errors.Wrapf(err, "consul agent %s", addr)
	}
	return &Consul{client: client, log: log}, nil
}

// Register announces the service with an HTTP health check on /healthz.
func (c *Consul) Register(reg Registration) error {
	host, port, err := hostPort(reg.Addr)
	if err != nil {
		return err
	}
	err = c.client.Agent().ServiceRegister(&api.AgentServiceRegistration{
		ID:      reg.ID,
		Name:    reg.Name,
		Port:    port,
		Address: host,
		Tags:    reg.Tags,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s/healthz", net.JoinHostPort(host, strconv.Itoa(port))),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
	})
	if err != nil {
		return errors.Wrapf(err, "register %s", reg.ID)
	}
	c.log.Info().Str("id", reg.ID).Str("address", host).Int("port", port).Msg("registered in consul")
	return nil
}

func (c *Consul) Deregister(id string) error {
	return errors.Wrapf(c.client.Agent().ServiceDeregister(id), "deregister %s", id)
}

// Resolver resolves the base URL of a healthy instance of name per call.
func (c *Consul) Resolver(name string) *Resolver {
	return &Resolver{consul: c, name: name}
}

type Resolver struct {
	consul *Consul
	name   string
}

func (r *Resolver) BaseURL(ctx context.Context) (string, error) {
	q := (&api.QueryOptions{}).WithContext(ctx)
	entries, _, err := r.consul.client.Health().Service(r.name, "", true, q)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", r.name)
	}
	if len(entries) == 0 {
		return "", errors.Errorf("no healthy instance of %s", r.name)
	}
	svc := entries[0].Service
	addr := svc.Address
	if addr == "" {
		addr = entries[0].Node.Address
	}
	return "http://" + net.JoinHostPort(addr, strconv.Itoa(svc.Port)), nil
}

// hostPort splits a listen address, filling an empty host with the outbound IP.
func hostPort(addr string) (string, int, error) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, errors.Wrapf(err, "listen address %q", addr)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, errors.Wrapf(err, "listen port %q", p)
	}
	if h == "" || h == "0.0.0.0" || h == "::" {
		h = outboundIP()
	}
	return h, port, nil
}

func outboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
