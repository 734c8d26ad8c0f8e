// Package discovery announces relays over mDNS and finds them on the local
// network.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
)

const (
	Service = "_huddle._tcp"
	Domain  = "local."
)

var ErrNotFound = errors.New("no huddle relay found on the local network")

// Announcement is a registered mDNS service.
type Announcement struct {
	server *zeroconf.Server
}

// Announce registers the relay listening on port. The instance name gets the
// hostname appended so several relays on one network stay distinct.
func Announce(instance string, port int, log zerolog.Logger) (*Announcement, error) {
	host, _ := os.Hostname()
	if host != "" {
		instance = fmt.Sprintf("%s-%s", instance, host)
	}
	server, err := zeroconf.Register(instance, Service, Domain, port, []string{"path=/ws", "txtv=1"}, nil)
	if err != nil {
		return nil, fmt.Errorf("register mdns service: %w", err)
	}
	log.Info().Str("instance", instance).Int("port", port).Msg("mdns service registered")
	return &Announcement{server: server}, nil
}

func (a *Announcement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Find browses for a relay and returns its host:port. Each attempt browses
// for window; failed attempts are retried with exponential backoff until ctx
// ends or attempts run out.
func Find(ctx context.Context, window time.Duration, attempts int, log zerolog.Logger) (string, error) {
	var found string
	op := func() error {
		addr, err := browseOnce(ctx, window)
		if err != nil {
			log.Debug().Err(err).Msg("mdns browse attempt failed")
			return err
		}
		found = addr
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	var b backoff.BackOff = policy
	if attempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(attempts-1))
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("discover relay: %w", ctxErr)
		}
		return "", fmt.Errorf("discover relay: %w", err)
	}
	log.Info().Str("relay", found).Msg("relay discovered")
	return found, nil
}

func browseOnce(ctx context.Context, window time.Duration) (string, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("init mdns resolver: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 8)
	if err := resolver.Browse(ctx, Service, Domain, entries); err != nil {
		return "", fmt.Errorf("browse mdns: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return "", ErrNotFound
		case entry, ok := <-entries:
			if !ok {
				return "", ErrNotFound
			}
			if addr, ok := EntryAddr(entry); ok {
				return addr, nil
			}
		}
	}
}

// EntryAddr picks a dialable address from a resolved entry, preferring IPv4.
func EntryAddr(e *zeroconf.ServiceEntry) (string, bool) {
	if e == nil || e.Port <= 0 {
		return "", false
	}
	port := strconv.Itoa(e.Port)
	switch {
	case len(e.AddrIPv4) > 0:
		return net.JoinHostPort(e.AddrIPv4[0].String(), port), true
	case len(e.AddrIPv6) > 0:
		return net.JoinHostPort(e.AddrIPv6[0].String(), port), true
	case e.HostName != "":
		return net.JoinHostPort(e.HostName, port), true
	}
	return "", false
}

// PortOf extracts the numeric port from a listen address such as ":8080".
func PortOf(addr string) (int, error) {
	_, raw, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse listen addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("listen addr %q has no numeric port", addr)
	}
	return port, nil
}
