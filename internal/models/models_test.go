package models

import "testing"

func TestNetworkResultsAnyFailed(t *testing.T) {
	ms := 1.0

	clean := NetworkResults{DNSOk: true, HTTPOk: true, UplinkPingMs: map[string]*float64{"1.1.1.1": &ms}}
	if clean.AnyFailed() {
		t.Fatalf("clean results must not report failure")
	}

	dnsDown := NetworkResults{DNSOk: false, HTTPOk: true}
	if !dnsDown.AnyFailed() {
		t.Fatalf("failed dns must count")
	}

	httpDown := NetworkResults{DNSOk: true, HTTPOk: false}
	if !httpDown.AnyFailed() {
		t.Fatalf("failed http must count")
	}

	uplinkDown := NetworkResults{DNSOk: true, HTTPOk: true, UplinkPingMs: map[string]*float64{"8.8.8.8": nil}}
	if !uplinkDown.AnyFailed() {
		t.Fatalf("unreachable uplink must count")
	}
}

func TestReportCamerasUp(t *testing.T) {
	r := Report{Cameras: []CameraResult{{Up: true}, {Up: false}, {Up: true}}}
	if got := r.CamerasUp(); got != 2 {
		t.Fatalf("expected 2 cameras up, got %d", got)
	}

	empty := Report{}
	if got := empty.CamerasUp(); got != 0 {
		t.Fatalf("expected 0 for empty report, got %d", got)
	}
}

func TestSiteReportRoundTrip(t *testing.T) {
	row := SiteReport{Site: "galpao"}
	if err := row.SetReport(&Report{AgentID: "agent-1", Site: "galpao"}); err != nil {
		t.Fatal(err)
	}
	rep, err := row.Report()
	if err != nil {
		t.Fatal(err)
	}
	if rep.AgentID != "agent-1" || rep.Site != "galpao" {
		t.Fatalf("unexpected round-trip result %+v", rep)
	}
}
