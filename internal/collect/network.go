package collect

import (
	"bufio"
	"io"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
)

// pi-helper env var names (written to /run/pi-helper.env).
const (
	EnvNetworkIP         = "NETWORK_IP"
	EnvNetworkStatus     = "NETWORK_STATUS"
	EnvNetworkWifiSignal = "NETWORK_WIFI_SIGNAL"
)

// DefaultWirelessPath is the kernel's wireless statistics table.
const DefaultWirelessPath = "/proc/net/wireless"

// EnvNetwork reports the link from pi-helper environment variables.
// When NETWORK_STATUS is unset it falls back to scanning local interfaces.
type EnvNetwork struct {
	Getenv       func(string) string
	WirelessPath string
	// InterfaceAddrs is net.InterfaceAddrs unless overridden.
	InterfaceAddrs func() ([]net.Addr, error)
}

func (e *EnvNetwork) getenv(key string) string {
	if e.Getenv != nil {
		return e.Getenv(key)
	}
	return os.Getenv(key)
}

// IsConnected reports whether the link is up.
func (e *EnvNetwork) IsConnected() bool {
	if s := e.getenv(EnvNetworkStatus); s != "" {
		return strings.EqualFold(s, "connected")
	}
	_, ok := e.scanAddress()
	return ok
}

// CurrentAddress returns the IPv4 address of the link.
func (e *EnvNetwork) CurrentAddress() (string, bool) {
	if ip := e.getenv(EnvNetworkIP); ip != "" {
		return ip, true
	}
	return e.scanAddress()
}

// Signal returns the link RSSI in dBm.
func (e *EnvNetwork) Signal() (int8, bool) {
	if s := e.getenv(EnvNetworkWifiSignal); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return clampDBm(v), true
		}
	}
	path := e.WirelessPath
	if path == "" {
		path = DefaultWirelessPath
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()
	return ParseWireless(f)
}

func (e *EnvNetwork) scanAddress() (string, bool) {
	addrs := e.InterfaceAddrs
	if addrs == nil {
		addrs = net.InterfaceAddrs
	}
	list, err := addrs()
	if err != nil {
		return "", false
	}
	for _, a := range list {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsLinkLocalUnicast() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			return v4.String(), true
		}
	}
	return "", false
}

// ParseWireless reads the signal level of the first interface listed in
// /proc/net/wireless. The level column is in dBm and may carry a trailing dot.
func ParseWireless(r io.Reader) (int8, bool) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		// Header lines contain "|" separators.
		if strings.Contains(line, "|") {
			continue
		}
		fields := strings.Fields(line[colon+1:])
		if len(fields) < 3 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			continue
		}
		return clampDBm(int(v)), true
	}
	return 0, false
}

func clampDBm(v int) int8 {
	if v > math.MaxInt8 {
		return math.MaxInt8
	}
	if v < math.MinInt8 {
		return math.MinInt8
	}
	return int8(v)
}
