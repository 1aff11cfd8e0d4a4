package collector

import (
	"github.com/swarm64/fpgamon/pkg/chart"
)

// identityMap assigns stable local device names to whatever identifiers the
// stats view reports. Names are handed out in first-seen order and the
// mapping is never invalidated for the life of the process, even if a
// device later disappears from query results.
type identityMap struct {
	names map[string]string
	next  int
}

func newIdentityMap() *identityMap {
	return &identityMap{names: make(map[string]string)}
}

// resolve returns the local name for a raw device identifier, assigning the
// next sequential name on first encounter.
func (m *identityMap) resolve(rawID string) string {
	if name, ok := m.names[rawID]; ok {
		return name
	}
	name := chart.DeviceName(m.next)
	m.names[rawID] = name
	m.next++
	return name
}
