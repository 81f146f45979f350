package systems

import (
	"testing"

	"github.com/pthm-cable/flappy/telemetry"
)

func TestSystemRegistry(t *testing.T) {
	reg := NewSystemRegistry()
	for p := telemetry.Phase(0); p < telemetry.NumPhases; p++ {
		if reg.Describe(p) == "" {
			t.Errorf("phase %s has no description", p)
		}
	}
	if got := reg.Name(telemetry.PhaseDecide); got != "Decide" {
		t.Errorf("Name(decide) = %q", got)
	}
	if got := reg.Name(telemetry.NumPhases); got != "unknown" {
		t.Errorf("Name(out of range) = %q", got)
	}

	reg.Register(SystemInfo{Phase: telemetry.NumPhases, Name: "bogus"})
	if got := reg.Name(telemetry.NumPhases); got != "unknown" {
		t.Errorf("out-of-range registration took effect: %q", got)
	}
}
