package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rfcampos/sitewatch/internal/config"
	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/logger"
)

func newClient(serverURL string) ICollectorClient {
	cfg := &config.AgentConfig{Server: serverURL, RequestTimeout: 2 * time.Second}
	return NewCollectorClient(cfg, logger.NewNop())
}

func TestRegister_AdoptsToken(t *testing.T) {
	var gotToken string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/agents/register":
			_ = json.NewEncoder(w).Encode(models.RegistrationResponse{
				Status: models.RegistrationApproved,
				Site:   "loja-centro",
				Token:  "tok-123",
			})
		case "/api/agents/loja-centro/config":
			gotToken = r.Header.Get("X-Agent-Token")
			_ = json.NewEncoder(w).Encode(models.SiteConfigPayload{Site: "loja-centro"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	client := newClient(ts.URL)

	reg, err := client.Register(context.Background(), "agent-1", "PC-07", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Status != models.RegistrationApproved || reg.Site != "loja-centro" {
		t.Fatalf("unexpected registration response: %+v", reg)
	}

	// Subsequent calls carry the assigned token.
	if _, err := client.GetConfig(context.Background(), "loja-centro"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotToken != "tok-123" {
		t.Fatalf("expected assigned token on follow-up request, got %q", gotToken)
	}
}

func TestRegister_NetworkErrorIsClassified(t *testing.T) {
	client := newClient("http://127.0.0.1:1")

	_, err := client.Register(context.Background(), "agent-1", "PC-07", "")
	if !errors.Is(err, models.ErrNetworkUnreachable) {
		t.Fatalf("expected network-unreachable classification, got %v", err)
	}
}

func TestLatestVersion_NotFoundMeansNoPackage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	info, err := newClient(ts.URL).LatestVersion(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil info when collector offers no package, got %+v", info)
	}
}

func TestDownloadPackage_WritesExecutable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("binary-payload"))
	}))
	defer ts.Close()

	dst := filepath.Join(t.TempDir(), "staged")
	if err := newClient(ts.URL).DownloadPackage(context.Background(), dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "binary-payload" {
		t.Fatalf("unexpected staged content %q", got)
	}
	stat, _ := os.Stat(dst)
	if stat.Mode()&0o100 == 0 {
		t.Fatalf("staged package must be executable, mode %v", stat.Mode())
	}
}

func TestSubmitReport_SendsSitePath(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer ts.Close()

	report := &models.Report{AgentID: "agent-1", Site: "galpao"}
	if err := newClient(ts.URL).SubmitReport(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/agents/galpao/report" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestMeasureBandwidth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/speedtest/download":
			_, _ = w.Write(make([]byte, 128*1024))
		case "/api/speedtest/upload":
			n, _ := io.Copy(io.Discard, r.Body)
			_ = json.NewEncoder(w).Encode(map[string]int64{"received_bytes": n})
		}
	}))
	defer ts.Close()

	down, up, err := newClient(ts.URL).MeasureBandwidth(context.Background(), 128*1024, 64*1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if down == nil || *down <= 0 {
		t.Fatalf("expected positive download rate, got %v", down)
	}
	if up == nil || *up <= 0 {
		t.Fatalf("expected positive upload rate, got %v", up)
	}
}
