package peercheck

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const validProfile = `{
  "name": "legitify-network-orgemployer",
  "version": "1.0.0",
  "organizations": {
    "OrgEmployer": {
      "mspid": "OrgEmployerMSP",
      "peers": ["peer0.orgemployer.com"],
      "certificateAuthorities": ["ca.orgemployer.com"]
    }
  },
  "peers": {
    "peer0.orgemployer.com": {
      "url": "grpcs://peer0.orgemployer.com:8051"
    }
  },
  "certificateAuthorities": {
    "ca.orgemployer.com": {"url": "https://localhost:8054", "caName": "ca-orgemployer"}
  }
}`

type staticProfiles map[string]string

func (p staticProfiles) ConnectionProfile(org string) (string, error) {
	path, ok := p[org]
	if !ok {
		return "", errors.New("unknown organization " + org)
	}
	return path, nil
}

type fakeResolver struct {
	addrs map[string][]string
	asked []string
}

func (r *fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	r.asked = append(r.asked, host)
	if a, ok := r.addrs[host]; ok {
		return a, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

type PeerCheckSuite struct {
	suite.Suite
	dir      string
	resolver *fakeResolver
}

func TestPeerCheckSuite(t *testing.T) {
	suite.Run(t, new(PeerCheckSuite))
}

func (s *PeerCheckSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.resolver = &fakeResolver{addrs: map[string][]string{"peer0.orgemployer.com": {"10.0.0.8"}}}
}

func (s *PeerCheckSuite) write(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *PeerCheckSuite) checker(profiles staticProfiles) *Checker {
	return New(profiles, WithResolver(s.resolver))
}

func (s *PeerCheckSuite) TestConnected() {
	path := s.write("connection-orgemployer.json", validProfile)

	status := s.checker(staticProfiles{"orgemployer": path}).Check(context.Background(), "orgemployer")

	s.True(status.Connected, status.Error)
	s.Empty(status.Error)
	s.Equal("peer0.orgemployer.com", status.Peer)
	s.Equal([]string{"peer0.orgemployer.com"}, s.resolver.asked)
}

func (s *PeerCheckSuite) TestYAMLProfile() {
	path := s.write("profile.yaml", `
organizations:
  OrgEmployer:
    mspid: OrgEmployerMSP
peers:
  peer0.orgemployer.com:
    url: grpcs://peer0.orgemployer.com:8051
`)
	status := s.checker(staticProfiles{"orgemployer": path}).Check(context.Background(), "orgemployer")
	s.True(status.Connected, status.Error)
}

func (s *PeerCheckSuite) TestFailures() {
	cases := []struct {
		name    string
		content string
		missing bool
		want    string
	}{
		{name: "missing file", missing: true, want: "not found"},
		{name: "malformed", content: `{"peers": [`, want: "malformed"},
		{name: "no peers", content: `{"organizations": {"A": {"mspid": "AMSP"}}}`, want: "no peers"},
		{name: "no organizations", content: `{"peers": {"p": {"url": "grpcs://p:1"}}}`, want: "no organizations"},
		{name: "unresolvable host", content: `{"organizations": {"A": {}}, "peers": {"p": {"url": "grpcs://nowhere.invalid:7051"}}}`, want: "does not resolve"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			path := filepath.Join(s.dir, "absent.json")
			if !tc.missing {
				path = s.write(tc.name+".json", tc.content)
			}
			status := s.checker(staticProfiles{"org": path}).Check(context.Background(), "org")
			s.False(status.Connected)
			s.Contains(status.Error, tc.want)
		})
	}
}

func (s *PeerCheckSuite) TestUnknownOrganization() {
	status := s.checker(staticProfiles{}).Check(context.Background(), "orgnowhere")
	s.False(status.Connected)
	s.Contains(status.Error, "unknown organization")
}

func (s *PeerCheckSuite) TestCheckAll() {
	path := s.write("ok.json", validProfile)
	statuses := s.checker(staticProfiles{"orgemployer": path}).CheckAll(context.Background(), []string{"orgemployer", "orguniversity"})
	s.Require().Len(statuses, 2)
	s.True(statuses[0].Connected)
	s.False(statuses[1].Connected)
}

func TestFirstPeerWithoutURLUsesName(t *testing.T) {
	p := &Profile{Peers: map[string]ProfileNode{"peer1.x.com": {}, "peer0.x.com": {}}}
	name, host, port, err := p.FirstPeer()
	require.NoError(t, err)
	assert.Equal(t, "peer0.x.com", name)
	assert.Equal(t, "peer0.x.com", host)
	assert.Empty(t, port)
}

func TestDNSResolver(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			q := r.Question[0]
			if q.Name == "peer0.orgemployer.com." && q.Qtype == dns.TypeA {
				rr, _ := dns.NewRR(q.Name + " 60 IN A 10.1.2.3")
				m.Answer = append(m.Answer, rr)
			}
			_ = w.WriteMsg(m)
		}),
	}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	r := NewDNSResolver(pc.LocalAddr().String())
	addrs, err := r.LookupHost(context.Background(), "peer0.orgemployer.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1.2.3"}, addrs)

	_, err = r.LookupHost(context.Background(), "missing.orgemployer.com")
	assert.Error(t, err)

	literal, err := r.LookupHost(context.Background(), "192.168.1.5")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.5"}, literal)
}

func TestNewDNSResolverDefaultsPort(t *testing.T) {
	r := NewDNSResolver("10.0.0.2, 10.0.0.3:5353,")
	assert.Equal(t, []string{"10.0.0.2:53", "10.0.0.3:5353"}, r.servers)
}
