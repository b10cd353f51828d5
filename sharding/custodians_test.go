package sharding

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runTestDNS serves the given SRV records from a local UDP listener and
// returns its address.
func runTestDNS(t *testing.T, records map[string][]dns.SRV) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &dns.Server{
		PacketConn: pc,
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)

			q := r.Question[0]
			for _, rec := range records[q.Name] {
				rr := rec
				rr.Hdr = dns.RR_Header{Name: q.Name, Rrtype: dns.TypeSRV, Class: dns.ClassINET, Ttl: 60}
				m.Answer = append(m.Answer, &rr)
			}

			_ = w.WriteMsg(m)
		}),
	}

	started := make(chan struct{})
	srv.NotifyStartedFunc = func() { close(started) }
	go func() { _ = srv.ActivateAndServe() }()
	<-started

	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestResolveEndpoints(t *testing.T) {
	addr := runTestDNS(t, map[string][]dns.SRV{
		"_custody._tcp.alpha.example.org.": {
			{Target: "keeper1.alpha.example.org.", Port: 8443},
			{Target: "keeper2.alpha.example.org.", Port: 9443},
		},
		"_custody._tcp.beta.example.org.": {
			{Target: "keeper.beta.example.org.", Port: 8443},
		},
	})

	r := NewCustodianResolver(testLogger(), addr)

	endpoints, err := r.ResolveEndpoints([]string{
		"_custody._tcp.alpha.example.org",
		"_custody._tcp.beta.example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"keeper1.alpha.example.org:8443",
		"keeper2.alpha.example.org:9443",
		"keeper.beta.example.org:8443",
	}, endpoints)
}

func TestResolveEndpointsSkipsEmptyDomains(t *testing.T) {
	addr := runTestDNS(t, map[string][]dns.SRV{
		"_custody._tcp.alpha.example.org.": {
			{Target: "keeper.alpha.example.org.", Port: 8443},
		},
	})

	r := NewCustodianResolver(testLogger(), addr)

	// The unknown domain answers with zero records and contributes
	// nothing; the known one still resolves.
	endpoints, err := r.ResolveEndpoints([]string{
		"_custody._tcp.unknown.example.org",
		"_custody._tcp.alpha.example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"keeper.alpha.example.org:8443"}, endpoints)
}

func TestResolveEndpointsAllFailed(t *testing.T) {
	addr := runTestDNS(t, nil)

	r := NewCustodianResolver(testLogger(), addr)

	_, err := r.ResolveEndpoints([]string{"_custody._tcp.unknown.example.org"})
	assert.Error(t, err)
}

func TestNewCustodianResolverDefaultServer(t *testing.T) {
	r := NewCustodianResolver(testLogger(), "")
	assert.Equal(t, DefaultDNSServer, r.dnsServer)
}
