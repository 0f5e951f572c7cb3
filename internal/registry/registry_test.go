package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"JEE Main", "jee_main"},
		{"e-Pay Tax", "e_pay_tax"},
		{"epaytax", "epaytax"},
		{"  ITR / e-Verify  ", "itr_e_verify"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CanonicalizeKey(tt.in); got != tt.want {
				t.Errorf("CanonicalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forms.json")
	content := `{
		"jee": {"url": "https://jeemain.nta.nic.in", "title": "JEE Main"},
		"e-Pay Tax": {"url": "https://eportal.incometax.gov.in/iec/foservices/#/e-pay-tax-prelogin"}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}

	entry, ok := reg.Get("jee")
	if !ok || entry.URL != "https://jeemain.nta.nic.in" {
		t.Errorf("Get(jee) = %+v, %v", entry, ok)
	}

	// Keys are canonicalized on load
	if _, ok := reg.Get("e_pay_tax"); !ok {
		t.Error("expected canonicalized key e_pay_tax to resolve")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load() on missing file should not error, got %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forms.json")
	if err := os.WriteFile(path, []byte(`{"jee": `), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed registry file")
	}
}

func TestKeys_Sorted(t *testing.T) {
	reg := FromMap(map[string]Entry{
		"zeta":   {URL: "https://z"},
		"alpha":  {URL: "https://a"},
		"middle": {URL: "https://m"},
	})

	keys := reg.Keys()
	want := []string{"alpha", "middle", "zeta"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
