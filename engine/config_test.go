package engine

import (
	"testing"

	"github.com/coreos/go-semver/semver"
)

func TestParseRollForward(t *testing.T) {
	tests := []struct {
		in      string
		want    RollForward
		wantErr bool
	}{
		{"", RollForwardMinor, false},
		{"minor", RollForwardMinor, false},
		{"Minor", RollForwardMinor, false},
		{"disable", RollForwardDisable, false},
		{"latestPatch", RollForwardLatestPatch, false},
		{"latestpatch", RollForwardLatestPatch, false},
		{"latestMinor", RollForwardLatestMinor, false},
		{"major", RollForwardMajor, false},
		{"latestMajor", RollForwardLatestMajor, false},
		{"sideways", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRollForward(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRollForward(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRollForward(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseRollForward(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRollForwardString(t *testing.T) {
	if got := RollForwardMinor.String(); got != "minor" {
		t.Errorf("String() = %q, want %q", got, "minor")
	}
	if got := RollForward(99).String(); got != "rollForward(99)" {
		t.Errorf("String() for unknown = %q, want %q", got, "rollForward(99)")
	}
}

func TestConfigSatisfies(t *testing.T) {
	v := func(s string) semver.Version { return *semver.New(s) }

	tests := []struct {
		name      string
		policy    RollForward
		requested string
		live      string
		want      bool
	}{
		{"minor exact", RollForwardMinor, "8.0.1", "8.0.1", true},
		{"minor higher patch", RollForwardMinor, "8.0.1", "8.0.4", true},
		{"minor higher minor", RollForwardMinor, "8.0.1", "8.3.0", true},
		{"minor lower patch", RollForwardMinor, "8.0.4", "8.0.1", false},
		{"minor different major", RollForwardMinor, "8.0.1", "9.0.0", false},

		{"disable exact", RollForwardDisable, "8.0.1", "8.0.1", true},
		{"disable higher patch", RollForwardDisable, "8.0.1", "8.0.2", false},

		{"latestPatch exact", RollForwardLatestPatch, "8.1.2", "8.1.2", true},
		{"latestPatch higher patch", RollForwardLatestPatch, "8.1.2", "8.1.9", true},
		{"latestPatch higher minor", RollForwardLatestPatch, "8.1.2", "8.2.0", false},

		{"latestMinor higher minor", RollForwardLatestMinor, "8.0.1", "8.5.0", true},
		{"latestMinor different major", RollForwardLatestMinor, "8.0.1", "9.1.0", false},

		{"major same major", RollForwardMajor, "8.0.1", "8.2.0", true},
		{"major higher major", RollForwardMajor, "8.0.1", "9.0.0", true},
		{"major lower", RollForwardMajor, "8.0.1", "7.9.9", false},

		{"latestMajor higher major", RollForwardLatestMajor, "8.0.1", "10.0.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Provider:    "goscript",
				Requested:   v(tt.requested),
				RollForward: tt.policy,
			}
			if got := cfg.Satisfies(v(tt.live)); got != tt.want {
				t.Errorf("Satisfies(%s) with %s requesting %s = %v, want %v",
					tt.live, tt.policy, tt.requested, got, tt.want)
			}
		})
	}
}
