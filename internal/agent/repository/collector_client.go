package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rfcampos/sitewatch/internal/config"
	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/logger"
)

const (
	agentTokenHeader = "X-Agent-Token"
	applicationJSON  = "application/json"
)

type collectorClient struct {
	http    *retryablehttp.Client
	baseURL string
	logger  *logger.CanonicalLogger

	mu    sync.Mutex
	token string
}

// NewCollectorClient creates the agent's HTTP client for the collector.
func NewCollectorClient(cfg *config.AgentConfig, log *logger.CanonicalLogger) ICollectorClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = cfg.RequestTimeout
	client.Logger = nil

	return &collectorClient{
		http:    client,
		baseURL: cfg.Server,
		logger:  log.Component("collector_client"),
		token:   cfg.Token,
	}
}

// UseToken adopts the token assigned by the collector at approval time.
func (c *collectorClient) UseToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *collectorClient) Register(ctx context.Context, agentID, hostname, requestedSite string) (*models.RegistrationResponse, error) {
	body := map[string]string{
		"agent_id": agentID,
		"hostname": hostname,
	}
	if requestedSite != "" {
		body["requested_site"] = requestedSite
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/agents/register", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("registration failed with status %d: %s", resp.StatusCode, string(b))
	}

	var reg models.RegistrationResponse
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return nil, fmt.Errorf("failed to decode registration response: %w", err)
	}

	if reg.Token != "" {
		c.UseToken(reg.Token)
	}

	return &reg, nil
}

func (c *collectorClient) GetConfig(ctx context.Context, site string) (*models.SiteConfigPayload, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/agents/"+site+"/config", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("config fetch failed with status %d: %s", resp.StatusCode, string(b))
	}

	var payload models.SiteConfigPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode config response: %w", err)
	}

	return &payload, nil
}

func (c *collectorClient) SubmitReport(ctx context.Context, report *models.Report) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/agents/"+report.Site+"/report", report)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("report submission failed with status %d: %s", resp.StatusCode, string(b))
	}

	return nil
}

func (c *collectorClient) LatestVersion(ctx context.Context) (*models.VersionInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/agent/version", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Collector has no package to offer.
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("version check failed with status %d", resp.StatusCode)
	}

	var info models.VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode version response: %w", err)
	}

	return &info, nil
}

// DownloadPackage streams the latest agent package to dst.
func (c *collectorClient) DownloadPackage(ctx context.Context, dst string) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/agent/download", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("package download failed with status %d", resp.StatusCode)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to write staging file: %w", err)
	}

	return f.Close()
}

// MeasureBandwidth runs the collector-backed download/upload throughput
// test. Either result may be nil when that direction failed.
func (c *collectorClient) MeasureBandwidth(ctx context.Context, downloadBytes, uploadBytes int64) (*float64, *float64, error) {
	var downMbps, upMbps *float64

	path := fmt.Sprintf("/api/speedtest/download?size_bytes=%d", downloadBytes)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	n, copyErr := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if copyErr == nil && resp.StatusCode == http.StatusOK && n > 0 {
		downMbps = bytesToMbps(n, time.Since(start))
	}

	payload := bytes.Repeat([]byte{0}, int(uploadBytes))
	start = time.Now()
	resp, err = c.do(ctx, http.MethodPost, "/api/speedtest/upload", payload)
	if err != nil {
		return downMbps, nil, nil
	}
	elapsed := time.Since(start)
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		sent := int64(len(payload))
		var ack struct {
			ReceivedBytes int64 `json:"received_bytes"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && ack.ReceivedBytes > 0 {
			sent = ack.ReceivedBytes
		}
		upMbps = bytesToMbps(sent, elapsed)
	}

	return downMbps, upMbps, nil
}

func (c *collectorClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload io.Reader
	if body != nil {
		if raw, ok := body.([]byte); ok {
			payload = bytes.NewReader(raw)
		} else {
			data, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}
			payload = bytes.NewReader(data)
		}
	}

	req, err := retryablehttp.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", applicationJSON)

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set(agentTokenHeader, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetworkUnreachable, err)
	}
	return resp, nil
}

func bytesToMbps(byteCount int64, elapsed time.Duration) *float64 {
	secs := elapsed.Seconds()
	if secs <= 0 || byteCount <= 0 {
		return nil
	}
	mbps := float64(byteCount) * 8 / (secs * 1_000_000)
	return &mbps
}
