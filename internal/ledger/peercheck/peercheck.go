// Package peercheck checks whether an organization's ledger connection profile is
// usable: the file exists, parses, names peers and organizations, and the
// first peer's host resolves.
package peercheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the structured check result. Check never returns an error; a
// failure is reported through Connected=false and Error.
type Status struct {
	Org       string `json:"org"`
	Connected bool   `json:"connected"`
	Peer      string `json:"peer,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// ProfileLocator resolves the connection profile path for an organization.
type ProfileLocator interface {
	ConnectionProfile(org string) (string, error)
}

// Profile is the subset of a connection profile the checker inspects.
// JSON profiles parse as YAML, so one decoder covers both formats.
type Profile struct {
	Name                   string                    `yaml:"name"`
	Organizations          map[string]ProfileOrg     `yaml:"organizations"`
	Peers                  map[string]ProfileNode    `yaml:"peers"`
	Orderers               map[string]ProfileNode    `yaml:"orderers"`
	CertificateAuthorities map[string]ProfileCA      `yaml:"certificateAuthorities"`
	Channels               map[string]map[string]any `yaml:"channels"`
}

type ProfileOrg struct {
	MSPID                  string   `yaml:"mspid"`
	Peers                  []string `yaml:"peers"`
	CertificateAuthorities []string `yaml:"certificateAuthorities"`
}

type ProfileNode struct {
	URL string `yaml:"url"`
}

type ProfileCA struct {
	URL    string `yaml:"url"`
	CAName string `yaml:"caName"`
}

// Checker runs connectivity checks.
type Checker struct {
	profiles ProfileLocator
	resolver Resolver
	dial     bool
	timeout  time.Duration
}

type Option func(*Checker)

// WithResolver overrides the host resolver.
func WithResolver(r Resolver) Option {
	return func(c *Checker) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithDial additionally requires a TCP connection to the peer to succeed.
func WithDial(dial bool) Option {
	return func(c *Checker) {
		c.dial = dial
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(profiles ProfileLocator, opts ...Option) *Checker {
	c := &Checker{
		profiles: profiles,
		resolver: net.DefaultResolver,
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check checks org.
func (c *Checker) Check(ctx context.Context, org string) Status {
	status := Status{Org: org}

	path, err := c.profiles.ConnectionProfile(org)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	profile, err := LoadProfile(path)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	peerName, host, port, err := profile.FirstPeer()
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Peer = peerName

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil {
		status.Error = fmt.Sprintf("peer host %s does not resolve: %v", host, err)
		return status
	}
	if len(addrs) == 0 {
		status.Error = fmt.Sprintf("peer host %s has no addresses", host)
		return status
	}

	if c.dial && port != "" {
		d := net.Dialer{Timeout: c.timeout}
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(addrs[0], port))
		if err != nil {
			status.Error = fmt.Sprintf("peer %s unreachable: %v", peerName, err)
			return status
		}
		_ = conn.Close()
	}

	status.Connected = true
	return status
}

// CheckAll checks each organization.
func (c *Checker) CheckAll(ctx context.Context, orgs []string) []Status {
	out := make([]Status, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, c.Check(ctx, org))
	}
	return out
}

// LoadProfile reads and validates a connection profile.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("connection profile not found at %s", path)
		}
		return nil, fmt.Errorf("read connection profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("connection profile is malformed: %w", err)
	}
	if len(p.Peers) == 0 {
		return nil, fmt.Errorf("connection profile has no peers section")
	}
	if len(p.Organizations) == 0 {
		return nil, fmt.Errorf("connection profile has no organizations section")
	}
	return &p, nil
}

// FirstPeer returns the alphabetically first peer with its host and port.
// The peer name is used as host when the URL is empty.
func (p *Profile) FirstPeer() (name, host, port string, err error) {
	names := make([]string, 0, len(p.Peers))
	for n := range p.Peers {
		names = append(names, n)
	}
	sort.Strings(names)
	name = names[0]

	raw := strings.TrimSpace(p.Peers[name].URL)
	if raw == "" {
		return name, name, "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return name, "", "", fmt.Errorf("peer %s has invalid url %q", name, raw)
	}
	return name, u.Hostname(), u.Port(), nil
}
