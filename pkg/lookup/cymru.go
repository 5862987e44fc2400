package lookup

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/canopy-network/nodedist/pkg/retry"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const (
	cymruOriginV4 = "origin.asn.cymru.com."
	cymruOriginV6 = "origin6.asn.cymru.com."

	// DefaultResolver is used when no resolver address is configured.
	DefaultResolver = "8.8.8.8:53"
)

// CymruASN resolves origin ASNs through Team Cymru's IP-to-ASN DNS zone.
type CymruASN struct {
	client   *dns.Client
	resolver string
	retry    retry.Config
	logger   *zap.Logger
}

// NewCymruASN builds a DNS-backed ASN lookup. An empty resolver uses DefaultResolver.
func NewCymruASN(resolver string, timeout time.Duration, logger *zap.Logger) *CymruASN {
	if resolver == "" {
		resolver = DefaultResolver
	}
	if _, _, err := net.SplitHostPort(resolver); err != nil {
		resolver = net.JoinHostPort(strings.Trim(resolver, "[]"), "53")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CymruASN{
		client:   &dns.Client{Timeout: timeout},
		resolver: resolver,
		retry:    retryConfig(kindASN),
		logger:   logger,
	}
}

// LookupASN queries the origin zone for ip and returns the first origin ASN.
func (c *CymruASN) LookupASN(ctx context.Context, ip string) (ASNResult, error) {
	name, err := cymruQueryName(ip)
	if err != nil {
		return ASNResult{}, err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(name, dns.TypeTXT)
	msg.RecursionDesired = true

	var out ASNResult
	start := time.Now()
	err = retry.WithBackoff(ctx, c.retry, c.logger, "cymru_asn", func() error {
		resp, _, err := c.client.ExchangeContext(ctx, msg, c.resolver)
		if err != nil {
			return err
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return retry.Permanent(ErrNoASN)
		default:
			return fmt.Errorf("dns rcode %s", dns.RcodeToString[resp.Rcode])
		}
		for _, rr := range resp.Answer {
			txt, ok := rr.(*dns.TXT)
			if !ok || len(txt.Txt) == 0 {
				continue
			}
			if res, ok := parseCymruTXT(strings.Join(txt.Txt, "")); ok {
				out = res
				return nil
			}
		}
		return retry.Permanent(ErrNoASN)
	})
	lookupDuration.WithLabelValues(kindASN).Observe(time.Since(start).Seconds())
	observeOutcome(kindASN, err)
	if err != nil {
		return ASNResult{}, fmt.Errorf("asn lookup %s: %w", ip, err)
	}
	return out, nil
}

// cymruQueryName turns 8.8.4.4 into 4.4.8.8.origin.asn.cymru.com. and an IPv6
// address into its nibble form under origin6.
func cymruQueryName(ip string) (string, error) {
	rev, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("reverse %q: %w", ip, err)
	}
	if trimmed, ok := strings.CutSuffix(rev, "in-addr.arpa."); ok {
		return trimmed + cymruOriginV4, nil
	}
	if trimmed, ok := strings.CutSuffix(rev, "ip6.arpa."); ok {
		return trimmed + cymruOriginV6, nil
	}
	return "", fmt.Errorf("unexpected reverse name %q", rev)
}

// parseCymruTXT reads "15169 | 8.8.8.0/24 | US | arin | 2023-12-28". When several
// origins announce the prefix the first field lists them space separated.
func parseCymruTXT(s string) (ASNResult, bool) {
	fields := strings.Split(s, "|")
	origins := strings.Fields(fields[0])
	if len(origins) == 0 {
		return ASNResult{}, false
	}
	res := ASNResult{ASN: origins[0]}
	if len(fields) > 1 {
		res.Prefix = strings.TrimSpace(fields[1])
	}
	return res, true
}
