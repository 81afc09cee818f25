package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Prober abstracts the raw network probe primitives. The set is fixed;
// implementations are thin wrappers around external tooling and are
// treated as black boxes by the rest of the agent.
type Prober interface {
	// Ping reports reachability of an IP and, when reachable, the
	// average round-trip time in milliseconds.
	Ping(ctx context.Context, ip string) (bool, *float64)

	// LookupMAC resolves the MAC address of a local IP from the ARP
	// table. Best effort; returns "" when unknown.
	LookupMAC(ctx context.Context, ip string) string

	// FindByMAC searches the local network for a device carrying the
	// given MAC, sweeping subnetIP's /24 when the ARP table has no
	// entry for it. Returns the device's current IP or "".
	FindByMAC(ctx context.Context, mac, subnetIP string) string

	// ResolveDNS reports whether the host resolves.
	ResolveDNS(ctx context.Context, host string) bool

	// HTTPGet reports whether a GET against the URL succeeds.
	HTTPGet(ctx context.Context, url string) bool
}

// SystemProber probes with the system ping/arp binaries and the standard
// resolver and HTTP client.
type SystemProber struct {
	PingCount   int
	PingTimeout time.Duration
	HTTPTimeout time.Duration
}

func NewSystemProber() *SystemProber {
	return &SystemProber{
		PingCount:   4,
		PingTimeout: time.Second,
		HTTPTimeout: 5 * time.Second,
	}
}

var rttRe = regexp.MustCompile(`min/avg/max[^=]*= *[\d.]+/([\d.]+)/`)

func (p *SystemProber) Ping(ctx context.Context, ip string) (bool, *float64) {
	count := p.PingCount
	if count <= 0 {
		count = 4
	}
	deadline := time.Duration(count)*p.PingTimeout + 2*time.Second

	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	secs := int(p.PingTimeout / time.Second)
	if secs < 1 {
		secs = 1
	}

	cmd := exec.CommandContext(runCtx, "ping", "-c", strconv.Itoa(count), "-W", strconv.Itoa(secs), ip)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return false, nil
	}

	// A zero exit with 100% loss is still down.
	if strings.Contains(string(out), "100% packet loss") {
		return false, nil
	}

	if m := rttRe.FindStringSubmatch(string(out)); m != nil {
		if avg, err := strconv.ParseFloat(m[1], 64); err == nil {
			return true, &avg
		}
	}

	return true, nil
}

var macRe = regexp.MustCompile(`(?i)([0-9a-f]{2}:){5}[0-9a-f]{2}`)

func (p *SystemProber) LookupMAC(ctx context.Context, ip string) string {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(runCtx, "arp", "-n", ip).CombinedOutput()
	if err != nil {
		return ""
	}

	if mac := macRe.FindString(string(out)); mac != "" {
		return strings.ToUpper(mac)
	}
	return ""
}

func (p *SystemProber) FindByMAC(ctx context.Context, mac, subnetIP string) string {
	mac = strings.ToUpper(mac)
	if mac == "" {
		return ""
	}

	if ip := p.arpFindMAC(ctx, mac); ip != "" {
		return ip
	}
	if subnetIP == "" {
		return ""
	}

	// The ARP table only holds recently-seen neighbours, so populate it
	// with a one-shot sweep of the subnet before looking again.
	p.sweepSubnet(ctx, subnetIP)
	return p.arpFindMAC(ctx, mac)
}

// arpFindMAC scans the full ARP table for an entry with the given MAC.
func (p *SystemProber) arpFindMAC(ctx context.Context, mac string) string {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(runCtx, "arp", "-n").CombinedOutput()
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		if net.ParseIP(fields[0]) == nil {
			continue
		}
		for _, field := range fields[1:] {
			if strings.EqualFold(field, mac) {
				return fields[0]
			}
		}
	}
	return ""
}

// sweepSubnet pings every host of ip's /24 once so unanswered neighbours
// show up in the ARP table.
func (p *SystemProber) sweepSubnet(ctx context.Context, ip string) {
	parsed := net.ParseIP(ip)
	if parsed = parsed.To4(); parsed == nil {
		return
	}
	base := fmt.Sprintf("%d.%d.%d.", parsed[0], parsed[1], parsed[2])

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(32)
	for host := 1; host < 255; host++ {
		target := base + strconv.Itoa(host)
		g.Go(func() error {
			runCtx, cancel := context.WithTimeout(gCtx, 2*time.Second)
			defer cancel()
			_ = exec.CommandContext(runCtx, "ping", "-c", "1", "-W", "1", target).Run()
			return nil
		})
	}
	_ = g.Wait()
}

func (p *SystemProber) ResolveDNS(ctx context.Context, host string) bool {
	resolver := &net.Resolver{}
	_, err := resolver.LookupHost(ctx, host)
	return err == nil
}

func (p *SystemProber) HTTPGet(ctx context.Context, url string) bool {
	client := &http.Client{Timeout: p.HTTPTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < 500
}
