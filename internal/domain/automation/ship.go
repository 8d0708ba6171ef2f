package automation

import (
	"math"
	"strings"
	"time"

	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// NavStatus represents ship navigation status
type NavStatus string

const (
	NavStatusDocked    NavStatus = "DOCKED"
	NavStatusInOrbit   NavStatus = "IN_ORBIT"
	NavStatusInTransit NavStatus = "IN_TRANSIT"
)

// Cooldown is the remote-enforced wait after extract or survey
type Cooldown struct {
	RemainingSeconds int
	Expiration       *time.Time
}

// ShipSnapshot is a point-in-time read of a ship from the gateway.
// It is never mutated locally after an action; the next tick fetches a fresh one.
type ShipSnapshot struct {
	Symbol       string
	NavStatus    NavStatus
	Waypoint     string
	SystemSymbol string
	Arrival      *time.Time
	Fuel         shared.Fuel
	Cargo        shared.Cargo
	Cooldown     Cooldown
	Mounts       []string
}

func (s *ShipSnapshot) IsDocked() bool {
	return s.NavStatus == NavStatusDocked
}

func (s *ShipSnapshot) IsInOrbit() bool {
	return s.NavStatus == NavStatusInOrbit
}

func (s *ShipSnapshot) IsInTransit() bool {
	return s.NavStatus == NavStatusInTransit
}

// IsOnCooldown reports an active cooldown at the given instant
func (s *ShipSnapshot) IsOnCooldown(now time.Time) bool {
	if s.Cooldown.RemainingSeconds > 0 {
		return true
	}
	return s.Cooldown.Expiration != nil && s.Cooldown.Expiration.After(now)
}

// CooldownRemainingSeconds prefers the reported countdown and falls back to
// the expiration, rounded up to whole seconds
func (s *ShipSnapshot) CooldownRemainingSeconds(now time.Time) int {
	if s.Cooldown.RemainingSeconds > 0 {
		return s.Cooldown.RemainingSeconds
	}
	if s.Cooldown.Expiration == nil || !s.Cooldown.Expiration.After(now) {
		return 0
	}
	return int(math.Ceil(s.Cooldown.Expiration.Sub(now).Seconds()))
}

func (s *ShipSnapshot) FuelPercent() float64 {
	return s.Fuel.Percentage()
}

func (s *ShipSnapshot) CargoPercent() float64 {
	return s.Cargo.Percentage()
}

// HasSurveyor reports whether any mount can survey
func (s *ShipSnapshot) HasSurveyor() bool {
	for _, mount := range s.Mounts {
		if strings.HasPrefix(mount, "MOUNT_SURVEYOR") {
			return true
		}
	}
	return false
}
