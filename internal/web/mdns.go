package web

import (
	"fmt"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service the status page is advertised under.
const ServiceType = "_http._tcp"

// Advertiser announces the HTTP server on the local network.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers instance for the port in listenAddr. txt entries are
// published as-is ("key=value").
func Advertise(instance, listenAddr string, txt []string) (*Advertiser, error) {
	port, err := portFromAddr(listenAddr)
	if err != nil {
		return nil, err
	}
	srv, err := zeroconf.Register(instance, ServiceType, "local.", port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	return &Advertiser{server: srv}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// TXTRecords returns the metadata published alongside the service.
func TXTRecords(version string) []string {
	return []string{
		"path=/index.html",
		"json=/index.json",
		"frame=/frame.png",
		"version=" + version,
	}
}

func portFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("listen address %q has no usable port", addr)
	}
	return port, nil
}
