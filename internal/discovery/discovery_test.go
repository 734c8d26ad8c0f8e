package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestEntryAddr(t *testing.T) {
	e := zeroconf.NewServiceEntry("relay", Service, Domain)
	e.Port = 8080
	if _, ok := EntryAddr(e); ok {
		t.Fatalf("entry without addresses should not resolve")
	}

	e.HostName = "relay.local."
	if got, _ := EntryAddr(e); got != "relay.local.:8080" {
		t.Fatalf("hostname fallback=%q", got)
	}

	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	if got, _ := EntryAddr(e); got != "[fe80::1]:8080" {
		t.Fatalf("ipv6=%q", got)
	}

	e.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	if got, _ := EntryAddr(e); got != "192.168.1.20:8080" {
		t.Fatalf("ipv4=%q", got)
	}

	e.Port = 0
	if _, ok := EntryAddr(e); ok {
		t.Fatalf("zero port should not resolve")
	}
	if _, ok := EntryAddr(nil); ok {
		t.Fatalf("nil entry should not resolve")
	}
}

func TestPortOf(t *testing.T) {
	for addr, want := range map[string]int{":8080": 8080, "0.0.0.0:9000": 9000, "[::1]:7000": 7000} {
		got, err := PortOf(addr)
		if err != nil || got != want {
			t.Fatalf("PortOf(%q)=%d,%v", addr, got, err)
		}
	}
	for _, addr := range []string{"8080", ":http", "host:"} {
		if _, err := PortOf(addr); err == nil {
			t.Fatalf("PortOf(%q) should fail", addr)
		}
	}
}
