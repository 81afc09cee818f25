package probe

import (
	"context"
	"testing"

	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/logger"
)

type fakeProber struct {
	up     map[string]bool
	macs   map[string]string
	byMAC  map[string]string
	dnsOk  bool
	httpOk bool
}

func (f *fakeProber) Ping(ctx context.Context, ip string) (bool, *float64) {
	if f.up[ip] {
		ms := 2.0
		return true, &ms
	}
	return false, nil
}
func (f *fakeProber) LookupMAC(ctx context.Context, ip string) string     { return f.macs[ip] }
func (f *fakeProber) FindByMAC(ctx context.Context, mac, _ string) string { return f.byMAC[mac] }
func (f *fakeProber) ResolveDNS(ctx context.Context, host string) bool    { return f.dnsOk }
func (f *fakeProber) HTTPGet(ctx context.Context, url string) bool        { return f.httpOk }

func TestRunKeepsCameraOrder(t *testing.T) {
	cameras := []models.Camera{
		{ID: "a", IP: "10.0.0.1"},
		{ID: "b", IP: "10.0.0.2"},
		{ID: "c", IP: "10.0.0.3"},
	}
	prober := &fakeProber{
		up:     map[string]bool{"10.0.0.2": true},
		macs:   map[string]string{"10.0.0.2": "aa:bb:cc:dd:ee:ff"},
		dnsOk:  true,
		httpOk: true,
	}
	r := NewRunner(prober, nil, "example.com", "http://example.com", logger.NewNop())

	results, _ := r.Run(context.Background(), cameras)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, cam := range cameras {
		if results[i].CameraID != cam.ID {
			t.Fatalf("result %d is for %q, want %q", i, results[i].CameraID, cam.ID)
		}
	}
	if results[0].Up || !results[1].Up || results[2].Up {
		t.Fatalf("unexpected reachability: %+v", results)
	}
	if results[1].MAC != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("expected MAC resolved for reachable camera, got %q", results[1].MAC)
	}
}

func TestRunRediscoversCameraMovedByDHCP(t *testing.T) {
	cameras := []models.Camera{{ID: "cam-entrada", IP: "10.0.0.50"}}
	prober := &fakeProber{
		up:     map[string]bool{"10.0.0.50": true},
		macs:   map[string]string{"10.0.0.50": "AA:BB:CC:DD:EE:FF"},
		dnsOk:  true,
		httpOk: true,
	}
	r := NewRunner(prober, nil, "example.com", "http://example.com", logger.NewNop())

	// First cycle sees the camera at its configured address and caches
	// its MAC.
	results, _ := r.Run(context.Background(), cameras)
	if !results[0].Up || results[0].MAC != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("setup cycle failed: %+v", results[0])
	}

	// The DHCP lease moves the camera to .73; the configured address
	// stops answering but the MAC is findable on the subnet.
	prober.up = map[string]bool{"10.0.0.73": true}
	prober.macs = map[string]string{"10.0.0.73": "AA:BB:CC:DD:EE:FF"}
	prober.byMAC = map[string]string{"AA:BB:CC:DD:EE:FF": "10.0.0.73"}

	results, _ = r.Run(context.Background(), cameras)
	if !results[0].Up {
		t.Fatalf("expected camera rediscovered by MAC, got %+v", results[0])
	}
	if results[0].IP != "10.0.0.73" {
		t.Fatalf("expected report to carry the new address, got %q", results[0].IP)
	}
	if results[0].PingMs == nil {
		t.Fatalf("rediscovered camera must carry a latency")
	}
}

func TestRunNoRediscoveryWithoutCachedMAC(t *testing.T) {
	cameras := []models.Camera{{ID: "cam-entrada", IP: "10.0.0.50"}}
	prober := &fakeProber{
		up:     map[string]bool{"10.0.0.73": true},
		byMAC:  map[string]string{"AA:BB:CC:DD:EE:FF": "10.0.0.73"},
		dnsOk:  true,
		httpOk: true,
	}
	r := NewRunner(prober, nil, "example.com", "http://example.com", logger.NewNop())

	// The camera was never seen, so there is no MAC to search for and
	// the camera stays down at its configured address.
	results, _ := r.Run(context.Background(), cameras)
	if results[0].Up {
		t.Fatalf("camera without a cached MAC must not be rediscovered: %+v", results[0])
	}
	if results[0].IP != "10.0.0.50" {
		t.Fatalf("expected configured address in result, got %q", results[0].IP)
	}
}

func TestRunMarksUnreachableUplink(t *testing.T) {
	prober := &fakeProber{
		up:     map[string]bool{"1.1.1.1": true},
		dnsOk:  true,
		httpOk: true,
	}
	r := NewRunner(prober, []string{"1.1.1.1", "8.8.8.8"}, "example.com", "http://example.com", logger.NewNop())

	_, net := r.Run(context.Background(), nil)
	if net.UplinkPingMs["1.1.1.1"] == nil {
		t.Fatalf("reachable uplink must carry a latency")
	}
	if net.UplinkPingMs["8.8.8.8"] != nil {
		t.Fatalf("unreachable uplink must be nil")
	}
	if !net.AnyFailed() {
		t.Fatalf("an unreachable uplink must count as a failed probe")
	}
}

func TestAnyFailedCleanCycle(t *testing.T) {
	prober := &fakeProber{
		up:     map[string]bool{"1.1.1.1": true},
		dnsOk:  true,
		httpOk: true,
	}
	r := NewRunner(prober, []string{"1.1.1.1"}, "example.com", "http://example.com", logger.NewNop())

	_, net := r.Run(context.Background(), nil)
	if net.AnyFailed() {
		t.Fatalf("clean cycle must not report failed probes")
	}
}

func TestCameraIDFallsBackToNameThenIP(t *testing.T) {
	if got := cameraID(models.Camera{ID: "x", Name: "y", IP: "z"}); got != "x" {
		t.Fatalf("expected id, got %q", got)
	}
	if got := cameraID(models.Camera{Name: "y", IP: "z"}); got != "y" {
		t.Fatalf("expected name, got %q", got)
	}
	if got := cameraID(models.Camera{IP: "z"}); got != "z" {
		t.Fatalf("expected ip, got %q", got)
	}
}
