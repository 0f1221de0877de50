package track

import (
	"github.com/google/uuid"

	"github.com/kstaniek/radar-bridge/internal/cluster"
)

// Manager wires an Assigner to an IDPool, maintaining the stable
// tracklet-UUID to cluster-ID map across frames.
type Manager struct {
	Assigner       *Assigner
	IDs            *IDPool
	trackToCluster map[uuid.UUID]int
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		Assigner:       NewAssigner(),
		IDs:            NewIDPool(),
		trackToCluster: make(map[uuid.UUID]int),
	}
}

// Update associates boxes (one per non-noise DBSCAN label) against the
// manager's tracklets and returns the stable cluster ID for each surviving
// label. A label not present in the result means its box matched no track
// this frame (should not occur for DBSCAN-derived boxes, which are always
// above the high-confidence gate) and callers should treat it as noise.
func (m *Manager) Update(boxes []cluster.Box, settings Settings, nowNs int64) map[cluster.Label]int {
	prevOrder := make([]uuid.UUID, len(m.Assigner.Tracklets))
	for i, t := range m.Assigner.Tracklets {
		prevOrder[i] = t.ID
	}

	info := m.Assigner.Update(settings, boxes, nowNs)

	oldToNew := make(map[cluster.Label]int, len(boxes))
	for i, b := range boxes {
		if info[i] == nil {
			continue
		}
		id, ok := m.trackToCluster[info[i].UUID]
		if !ok {
			id = m.IDs.Acquire()
			m.trackToCluster[info[i].UUID] = id
		}
		oldToNew[b.Label] = id
	}

	live := make(map[uuid.UUID]struct{}, len(m.Assigner.Tracklets))
	for _, t := range m.Assigner.Tracklets {
		live[t.ID] = struct{}{}
	}
	// Release in the order tracklets existed before this update, so a
	// simultaneous multi-track expiry still frees IDs in a deterministic
	// (and therefore deterministically LIFO-reusable) order.
	for _, id := range prevOrder {
		if _, ok := live[id]; ok {
			continue
		}
		clusterID, ok := m.trackToCluster[id]
		if !ok {
			continue
		}
		delete(m.trackToCluster, id)
		m.IDs.Release(clusterID)
	}

	return oldToNew
}

// Remap applies oldToNew (from Update) to a parallel labels slice, mapping
// every non-noise label to its stable cluster ID and leaving noise (0) as
// is.
func Remap(labels []cluster.Label, oldToNew map[cluster.Label]int) []int {
	out := make([]int, len(labels))
	for i, l := range labels {
		if l == 0 {
			continue
		}
		out[i] = oldToNew[l]
	}
	return out
}
