package supervisor

import (
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// ResolveFriend resolves a configured "friend" host:port to an
// IP-literal host:port. IP-literal hosts pass through untouched. DNS
// names are resolved explicitly against the system's configured
// resolvers rather than relying on net.Dial's implicit resolution, so
// a broken resolver fails the dial immediately with a clear error
// instead of hanging a dial goroutine.
func ResolveFriend(hostport string) (string, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", fmt.Errorf("supervisor: invalid friend address %q: %w", hostport, err)
	}
	if net.ParseIP(host) != nil {
		return hostport, nil
	}

	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return "", fmt.Errorf("supervisor: reading resolver config: %w", err)
	}

	client := new(dns.Client)
	query := new(dns.Msg)
	query.SetQuestion(dns.Fqdn(host), dns.TypeA)

	var lastErr error
	for _, server := range cfg.Servers {
		resp, _, err := client.Exchange(query, net.JoinHostPort(server, cfg.Port))
		if err != nil {
			lastErr = err
			continue
		}
		for _, rr := range resp.Answer {
			if a, ok := rr.(*dns.A); ok {
				return net.JoinHostPort(a.A.String(), port), nil
			}
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("supervisor: resolving %s: %w", host, lastErr)
	}
	return "", fmt.Errorf("supervisor: no A record for %s", host)
}
