package sharding

import (
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// DefaultDNSServer is the systemd-resolved stub listener queried when no
// server is configured.
const DefaultDNSServer = "127.0.0.53:53"

// CustodianResolver discovers custodian delivery endpoints from DNS SRV
// records. Each custodian domain publishes SRV records naming the hosts
// and ports that accept shard deliveries.
type CustodianResolver struct {
	dnsServer string
	log       *slog.Logger
}

// NewCustodianResolver returns a resolver querying the given DNS server
// address, or DefaultDNSServer when empty.
func NewCustodianResolver(log *slog.Logger, dnsServer string) *CustodianResolver {
	if dnsServer == "" {
		dnsServer = DefaultDNSServer
	}
	return &CustodianResolver{dnsServer: dnsServer, log: log}
}

// ResolveEndpoints resolves every custodian domain to host:port
// endpoints. Domains that fail to resolve are logged and skipped; the
// call only errors when no endpoint could be resolved at all.
func (r *CustodianResolver) ResolveEndpoints(domains []string) ([]string, error) {
	endpoints := []string{}
	for _, domain := range domains {
		targets, err := r.resolveSRV(domain)
		if err != nil {
			r.log.Warn("Failed to resolve custodian domain", slog.String("domain", domain), "err", err)
			continue
		}

		endpoints = append(endpoints, targets...)
	}

	if len(endpoints) == 0 {
		return nil, errors.New("no custodian endpoints resolved")
	}
	return endpoints, nil
}

// resolveSRV queries SRV records for a single domain and joins each
// record's target and port into a dialable endpoint.
func (r *CustodianResolver) resolveSRV(domain string) ([]string, error) {
	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{{Name: dns.Fqdn(domain), Qtype: dns.TypeSRV, Qclass: dns.ClassINET}}

	c := new(dns.Client)
	in, _, err := c.Exchange(m, r.dnsServer)
	if err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			host := strings.TrimSuffix(srv.Target, ".")
			targets = append(targets, net.JoinHostPort(host, strconv.Itoa(int(srv.Port))))
		}
	}

	return targets, nil
}
