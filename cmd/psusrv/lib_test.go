package main

import "testing"

func TestSubMuxSanitize(t *testing.T) {
	cases := map[string]string{
		"lab/psu":   "/lab/psu/",
		"/lab/psu":  "/lab/psu/",
		"/lab/psu/": "/lab/psu/",
	}
	for in, want := range cases {
		if got := subMuxSanitize(in); got != want {
			t.Errorf("subMuxSanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDuplicateStemDetectsCollisions(t *testing.T) {
	nodes := []ObjSetup{
		{Endpoint: "lab/psu"},
		{Endpoint: "/lab/other/"},
		{Endpoint: "/lab/psu/"},
	}
	if got := duplicateStem(nodes); got != "/lab/psu/" {
		t.Errorf("expected /lab/psu/ flagged as duplicate, got %q", got)
	}
	if got := duplicateStem(nodes[:2]); got != "" {
		t.Errorf("distinct endpoints flagged as duplicate: %q", got)
	}
}

func TestSupplyConfigDefaultsAndOverrides(t *testing.T) {
	node := ObjSetup{Type: "fug", MaxVoltage: 40000}
	cfg := supplyConfig(node)
	if cfg.MaxVoltage != 40000 {
		t.Errorf("override lost, max voltage %g", cfg.MaxVoltage)
	}
	if cfg.MaxCurrent != 0.5 {
		t.Errorf("fug default current should be 0.5, got %g", cfg.MaxCurrent)
	}
}

func TestSupplyConfigLimitsNarrowCeiling(t *testing.T) {
	node := ObjSetup{
		Type:   "heinzinger",
		Limits: map[string]Minmax{"V": {Min: 0, Max: 10000}},
	}
	cfg := supplyConfig(node)
	if cfg.MaxVoltage != 10000 {
		t.Errorf("limit should narrow the ceiling to 10000, got %g", cfg.MaxVoltage)
	}
}

func TestBuildMuxMockNodes(t *testing.T) {
	c := Config{
		Addr: ":0",
		Mock: true,
		Nodes: []ObjSetup{
			{Endpoint: "heinzinger", Type: "heinzinger", NoRelay: true},
			{Endpoint: "fug", Type: "fug"},
		}}
	mux := BuildMux(c)
	if mux == nil {
		t.Fatal("expected a mux")
	}
}
