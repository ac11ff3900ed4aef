package model

import (
	"sort"
	"time"
)

// Snapshot is a single point-in-time backup artifact.
type Snapshot struct {
	ID        string    `json:"id"`
	SiteID    int64     `json:"site_id"`
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
	Encrypted bool      `json:"encrypted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// ServerID is set when the snapshot is annotated with a restore destination.
	ServerID int64 `json:"server_id,omitempty"`
}

// SnapshotGroup holds the snapshots of one type, newest first.
type SnapshotGroup struct {
	Type      string     `json:"type"`
	Snapshots []Snapshot `json:"snapshots"`
}

// GroupSnapshots groups snapshots by type. Groups are ordered by type name and
// snapshots inside a group by creation time, newest first.
func GroupSnapshots(snapshots []Snapshot) []SnapshotGroup {
	index := make(map[string]int)
	var groups []SnapshotGroup
	for _, s := range snapshots {
		i, ok := index[s.Type]
		if !ok {
			i = len(groups)
			index[s.Type] = i
			groups = append(groups, SnapshotGroup{Type: s.Type})
		}
		groups[i].Snapshots = append(groups[i].Snapshots, s)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Type < groups[j].Type })
	for _, g := range groups {
		sort.SliceStable(g.Snapshots, func(i, j int) bool {
			return g.Snapshots[i].CreatedAt.After(g.Snapshots[j].CreatedAt)
		})
	}
	return groups
}

// FindSnapshot returns the snapshot with the given id.
func FindSnapshot(snapshots []Snapshot, id string) (Snapshot, bool) {
	for _, s := range snapshots {
		if s.ID == id {
			return s, true
		}
	}
	return Snapshot{}, false
}
