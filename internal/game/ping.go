package game

import "time"

// ReplenishScore is the score interval at which limited mode earns one
// ping back.
const ReplenishScore = 800

// PingGate decides whether a ping request may emit an echo. It is a small
// two-state machine: Ready until a ping is accepted, Cooling until the
// profile interval has elapsed. Limited mode additionally draws from a
// finite budget replenished by score.
type PingGate struct {
	mode      GameMode
	profile   Profile
	remaining int
	lastPing  time.Time
	pinged    bool // false until the first accepted ping
	threshold int  // last score/ReplenishScore multiple credited
}

// NewPingGate creates a gate holding the full budget for the profile.
func NewPingGate(mode GameMode, profile Profile) *PingGate {
	return &PingGate{
		mode:      mode,
		profile:   profile,
		remaining: profile.EchoBudget,
	}
}

// Remaining returns the pings left in limited mode. In infinite mode the
// value is reported but never consumed.
func (g *PingGate) Remaining() int {
	return g.remaining
}

// CooldownFrac returns cooldown progress in [0,1]; 1 means ready.
func (g *PingGate) CooldownFrac(now time.Time) float64 {
	if !g.pinged || g.profile.Interval <= 0 {
		return 1
	}
	frac := float64(now.Sub(g.lastPing)) / float64(g.profile.Interval)
	if frac > 1 {
		return 1
	}
	return frac
}

// Ready reports whether the cooldown has elapsed and, in limited mode,
// budget remains.
func (g *PingGate) Ready(now time.Time) bool {
	if g.pinged && now.Sub(g.lastPing) <= g.profile.Interval {
		return false
	}
	if g.mode == ModeLimited && g.remaining <= 0 {
		return false
	}
	return true
}

// TryPing attempts to accept a ping at the given instant. On success it
// records the ping time and, in limited mode, consumes one from the
// budget. Exactly one echo must be emitted per accepted ping.
func (g *PingGate) TryPing(now time.Time) bool {
	if !g.Ready(now) {
		return false
	}
	g.lastPing = now
	g.pinged = true
	if g.mode == ModeLimited {
		g.remaining--
	}
	return true
}

// OnScore credits one ping per ReplenishScore threshold the cumulative
// score has crossed since the last call, capped at the profile budget.
// Infinite mode ignores score.
func (g *PingGate) OnScore(score int) {
	if g.mode != ModeLimited {
		return
	}
	crossed := score / ReplenishScore
	for g.threshold < crossed {
		g.threshold++
		if g.remaining < g.profile.EchoBudget {
			g.remaining++
		}
	}
}
