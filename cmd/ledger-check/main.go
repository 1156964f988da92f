// Package main checks ledger connectivity for each organization: the
// connection profile must parse and its first peer must resolve.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"legitify/internal/identity"
	identitymodels "legitify/internal/identity/models"
	"legitify/internal/ledger"
	"legitify/internal/ledger/peercheck"
	"legitify/internal/platform/config"
)

func main() {
	cfg := config.FromEnv()

	orgsFlag := flag.String("orgs", "", "Comma-separated organizations (default: all)")
	cryptoFlag := flag.String("crypto-path", cfg.Ledger.CryptoPath, "Root of the crypto-config tree")
	dnsFlag := flag.String("dns", cfg.Ledger.DNSServer, "DNS server(s) for peer resolution, host[:port]")
	dialFlag := flag.Bool("dial", false, "Also open a TCP connection to the first peer")
	timeoutFlag := flag.Duration("timeout", 5*time.Second, "Per-organization timeout")
	jsonFlag := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	opts := []peercheck.Option{peercheck.WithDial(*dialFlag), peercheck.WithTimeout(*timeoutFlag)}
	if *dnsFlag != "" {
		opts = append(opts, peercheck.WithResolver(peercheck.NewDNSResolver(*dnsFlag)))
	}
	checker := peercheck.New(ledger.LayoutProfiles{Layout: identity.Layout{Root: *cryptoFlag}}, opts...)

	statuses := checker.CheckAll(context.Background(), selectOrgs(*orgsFlag))
	if err := report(os.Stdout, statuses, *jsonFlag); err != nil {
		fmt.Fprintf(os.Stderr, "ledger-check: %v\n", err)
		os.Exit(2)
	}
	for _, s := range statuses {
		if !s.Connected {
			os.Exit(1)
		}
	}
}

func selectOrgs(flagValue string) []string {
	if strings.TrimSpace(flagValue) == "" {
		var names []string
		for _, org := range identitymodels.DefaultOrgs() {
			names = append(names, org.Name)
		}
		return names
	}
	var names []string
	for _, name := range strings.Split(flagValue, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func report(w io.Writer, statuses []peercheck.Status, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}
	for _, s := range statuses {
		if s.Connected {
			if _, err := fmt.Fprintf(w, "%-16s ok    %s\n", s.Org, s.Peer); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%-16s FAIL  %s\n", s.Org, s.Error); err != nil {
			return err
		}
	}
	return nil
}
