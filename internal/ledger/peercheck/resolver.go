package peercheck

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DNSResolver resolves hosts against explicit DNS servers instead of the
// system resolver. Useful when peers live behind a private zone.
type DNSResolver struct {
	servers []string
	client  *dns.Client
}

// NewDNSResolver accepts a comma-separated list of host[:port] servers.
func NewDNSResolver(servers string) *DNSResolver {
	var list []string
	for _, s := range strings.Split(servers, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		list = append(list, s)
	}
	return &DNSResolver{
		servers: list,
		client:  &dns.Client{Timeout: 2 * time.Second},
	}
}

// LookupHost returns A and AAAA records for host. IP literals are returned as-is.
func (r *DNSResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}
	if len(r.servers) == 0 {
		return nil, fmt.Errorf("no dns servers configured")
	}

	var lastErr error
	for _, server := range r.servers {
		var addrs []string
		for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
			m := new(dns.Msg)
			m.SetQuestion(dns.Fqdn(host), qtype)
			m.RecursionDesired = true

			resp, _, err := r.client.ExchangeContext(ctx, m, server)
			if err != nil {
				lastErr = err
				continue
			}
			if resp.Rcode != dns.RcodeSuccess {
				lastErr = fmt.Errorf("%s: %s", server, dns.RcodeToString[resp.Rcode])
				continue
			}
			addrs = append(addrs, answerAddrs(resp.Answer)...)
		}
		if len(addrs) > 0 {
			return addrs, nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no records for %s", host)
	}
	return nil, lastErr
}

func answerAddrs(rrs []dns.RR) []string {
	var out []string
	for _, rr := range rrs {
		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		}
	}
	return out
}
