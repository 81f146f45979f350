package systems

import "github.com/pthm-cable/flappy/telemetry"

// SystemInfo describes a tick phase for UI display.
type SystemInfo struct {
	Phase       telemetry.Phase
	Name        string
	Description string
}

// SystemRegistry holds display metadata for every tick phase.
type SystemRegistry struct {
	systems [telemetry.NumPhases]SystemInfo
}

// NewSystemRegistry creates a registry describing the game's tick phases.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{}
	reg.Register(SystemInfo{Phase: telemetry.PhaseKinematics, Name: "Kinematics", Description: "Advances bird arcs and tilt"})
	reg.Register(SystemInfo{Phase: telemetry.PhaseDecide, Name: "Decide", Description: "Queries pilots and applies jumps"})
	reg.Register(SystemInfo{Phase: telemetry.PhasePipes, Name: "Pipes", Description: "Collisions, passes and spawns"})
	reg.Register(SystemInfo{Phase: telemetry.PhaseBounds, Name: "Bounds", Description: "Floor and ceiling checks"})
	reg.Register(SystemInfo{Phase: telemetry.PhaseGround, Name: "Ground", Description: "Scrolls the base layer"})
	reg.Register(SystemInfo{Phase: telemetry.PhasePublish, Name: "Publish", Description: "Hands the frame to sinks"})
	return reg
}

// Register sets the metadata for info.Phase. Unknown phases are ignored.
func (r *SystemRegistry) Register(info SystemInfo) {
	if info.Phase < 0 || info.Phase >= telemetry.NumPhases {
		return
	}
	r.systems[info.Phase] = info
}

// Name returns the display name for a phase, falling back to its key.
func (r *SystemRegistry) Name(p telemetry.Phase) string {
	if p >= 0 && p < telemetry.NumPhases && r.systems[p].Name != "" {
		return r.systems[p].Name
	}
	return p.String()
}

// Describe returns the phase description, or "" when unregistered.
func (r *SystemRegistry) Describe(p telemetry.Phase) string {
	if p < 0 || p >= telemetry.NumPhases {
		return ""
	}
	return r.systems[p].Description
}
