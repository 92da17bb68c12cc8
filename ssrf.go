package main

import (
	"context"
	"fmt"
	"net"
	"os"
)

// Address ranges that the fetcher must never connect to. Covers IPv4
// loopback, the RFC1918 ranges, link-local, and the IPv6 equivalents.
var blockedRanges = func() []*net.IPNet {
	cidrs := []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Errorf("parse error on %q: %v", cidr, err))
		}
		nets = append(nets, block)
	}
	return nets
}()

// isPrivateIP reports whether ip falls in a blocked range. Tests running
// against local httptest servers set BINDERY_TEST_ALLOW_LOCAL=1 to let
// loopback through.
func isPrivateIP(ip net.IP) bool {
	if os.Getenv("BINDERY_TEST_ALLOW_LOCAL") == "1" {
		return false
	}
	switch {
	case ip.IsLoopback(), ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return true
	}
	for _, block := range blockedRanges {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// safeDialContext returns a dial function that resolves addr itself,
// rejects hosts whose every address is private, and connects to the
// vetted IP directly so a second DNS lookup can't swap in a private one.
// TLS callers keep SNI on the original hostname.
func safeDialContext(dialer *net.Dialer) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := net.LookupIP(host)
		if err != nil {
			return nil, err
		}

		for _, ip := range ips {
			if isPrivateIP(ip) {
				continue
			}
			return dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		}
		return nil, fmt.Errorf("blocked connection to private/local IP for %s", host)
	}
}
