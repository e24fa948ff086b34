package reducer

import "github.com/Domenick1991/airdash/internal/events"

// VersionGuard drops events older than the last one applied for the same
// flight. Events without a version or flight id always pass. Not safe for
// concurrent use; views call it under their own lock.
type VersionGuard struct {
	last map[int64]int64
}

func NewVersionGuard() *VersionGuard {
	return &VersionGuard{last: make(map[int64]int64)}
}

func (g *VersionGuard) Admit(ev events.Event) bool {
	if g == nil {
		return true
	}
	id := events.FlightID(ev)
	version := ev.Metadata().Version
	if id == 0 || version == 0 {
		return true
	}
	if version < g.last[id] {
		return false
	}
	g.last[id] = version
	return true
}
