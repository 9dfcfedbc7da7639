package dnsrecords

import (
	"context"
	"errors"
	"net"
	"time"
)

// Resolver is the subset of *net.Resolver the plugin needs
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// NewNetResolver returns a resolver using the system configuration, or the
// given server (host:port) when non-empty.
func NewNetResolver(server string) *net.Resolver {
	if server == "" {
		return net.DefaultResolver
	}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: 2 * time.Second}
			return d.DialContext(ctx, network, server)
		},
	}
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
