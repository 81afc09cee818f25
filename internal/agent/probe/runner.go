package probe

import (
	"context"
	"sync"

	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// cameraConcurrency caps simultaneous camera pings per cycle.
const cameraConcurrency = 8

// Runner executes the fixed probe set for one cycle. Camera probes run
// concurrently because their results are independent and
// order-insensitive. The runner remembers each camera's last known MAC
// across cycles so a camera that DHCP moved to a new address can be
// found again by hardware address.
type Runner struct {
	prober        Prober
	uplinkTargets []string
	dnsHost       string
	httpURL       string
	logger        *logger.CanonicalLogger

	mu   sync.Mutex
	macs map[string]string // camera id -> last known MAC
}

func NewRunner(prober Prober, uplinkTargets []string, dnsHost, httpURL string, log *logger.CanonicalLogger) *Runner {
	return &Runner{
		prober:        prober,
		uplinkTargets: uplinkTargets,
		dnsHost:       dnsHost,
		httpURL:       httpURL,
		logger:        log.Component("probe"),
		macs:          make(map[string]string),
	}
}

// Run probes every camera and the network uplink targets and returns the
// merged results. Results are positional: index i of the returned slice
// corresponds to cameras[i] regardless of completion order.
func (r *Runner) Run(ctx context.Context, cameras []models.Camera) ([]models.CameraResult, models.NetworkResults) {
	results := make([]models.CameraResult, len(cameras))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(cameraConcurrency)

	for i, cam := range cameras {
		g.Go(func() error {
			results[i] = r.probeCamera(gCtx, cam)
			return nil
		})
	}

	net := r.probeNetwork(ctx)

	_ = g.Wait()

	up := 0
	for _, res := range results {
		if res.Up {
			up++
		}
	}
	r.logger.Debug("probe cycle complete",
		logger.Int(logger.FieldCamerasUp, up),
		logger.Int(logger.FieldCamerasTotal, len(results)),
		logger.Bool("dns_ok", net.DNSOk),
		logger.Bool("http_ok", net.HTTPOk),
	)

	return results, net
}

// probeCamera pings the camera at its configured address and, when it
// does not answer, tries to rediscover it by its last known MAC in case
// the DHCP lease moved it. A rediscovered camera reports its current
// address so the collector (and an operator) can see where it went.
func (r *Runner) probeCamera(ctx context.Context, cam models.Camera) models.CameraResult {
	id := cameraID(cam)
	res := models.CameraResult{
		CameraID: id,
		Name:     cam.Name,
		IP:       cam.IP,
	}

	up, avgMs := r.prober.Ping(ctx, cam.IP)
	if !up {
		if newIP := r.rediscover(ctx, id, cam.IP); newIP != "" {
			if movedUp, movedMs := r.prober.Ping(ctx, newIP); movedUp {
				up, avgMs = movedUp, movedMs
				res.IP = newIP
				r.logger.Info("camera answered at new address",
					logger.String("camera_id", id),
					logger.String("old_ip", cam.IP),
					logger.String("new_ip", newIP),
				)
			}
		}
	}

	res.Up = up
	res.PingMs = avgMs
	if up {
		if mac := r.prober.LookupMAC(ctx, res.IP); mac != "" {
			res.MAC = mac
			r.mu.Lock()
			r.macs[id] = mac
			r.mu.Unlock()
		}
	}
	return res
}

// rediscover looks for the camera's cached MAC elsewhere on the subnet.
// Returns the new address, or "" when the camera was never seen, has not
// moved, or cannot be found.
func (r *Runner) rediscover(ctx context.Context, id, oldIP string) string {
	r.mu.Lock()
	mac := r.macs[id]
	r.mu.Unlock()
	if mac == "" {
		return ""
	}

	ip := r.prober.FindByMAC(ctx, mac, oldIP)
	if ip == "" || ip == oldIP {
		return ""
	}
	return ip
}

func (r *Runner) probeNetwork(ctx context.Context) models.NetworkResults {
	net := models.NetworkResults{
		UplinkPingMs: make(map[string]*float64, len(r.uplinkTargets)),
	}

	// A nil entry means the target did not answer; a reachable target
	// always carries a latency so the aggregator can tell the two apart.
	for _, target := range r.uplinkTargets {
		ok, avgMs := r.prober.Ping(ctx, target)
		if !ok {
			net.UplinkPingMs[target] = nil
			continue
		}
		if avgMs == nil {
			zero := 0.0
			avgMs = &zero
		}
		net.UplinkPingMs[target] = avgMs
	}

	net.DNSOk = r.prober.ResolveDNS(ctx, r.dnsHost)
	net.HTTPOk = r.prober.HTTPGet(ctx, r.httpURL)

	return net
}

func cameraID(cam models.Camera) string {
	if cam.ID != "" {
		return cam.ID
	}
	if cam.Name != "" {
		return cam.Name
	}
	return cam.IP
}
