package core

import (
	"testing"
)

func tracks(titles ...string) []Track {
	out := make([]Track, len(titles))
	for i, t := range titles {
		out[i] = Track{ID: t, Title: t}
	}
	return out
}

func titles(ts []Track) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Title
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMoveTrack(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"front to back", 0, 2, []string{"B", "C", "A"}},
		{"back to front", 2, 0, []string{"C", "A", "B"}},
		{"same index", 1, 1, []string{"A", "B", "C"}},
		{"out of range", 0, 5, []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tracks("A", "B", "C")
			got := MoveTrack(in, tt.from, tt.to)
			if !equal(titles(got), tt.want) {
				t.Errorf("MoveTrack(%d, %d) = %v, want %v", tt.from, tt.to, titles(got), tt.want)
			}
			if !equal(titles(in), []string{"A", "B", "C"}) {
				t.Errorf("input modified: %v", titles(in))
			}
		})
	}
}

func TestRemoveTrack(t *testing.T) {
	in := tracks("X", "Y", "Z")
	got, removed := RemoveTrack(in, 1)
	if removed.Title != "Y" {
		t.Errorf("removed = %q, want Y", removed.Title)
	}
	if !equal(titles(got), []string{"X", "Z"}) {
		t.Errorf("RemoveTrack() = %v", titles(got))
	}
	if !equal(titles(in), []string{"X", "Y", "Z"}) {
		t.Errorf("input modified: %v", titles(in))
	}
}

func TestSnapshotPartition(t *testing.T) {
	s := Snapshot{Queue: []QueueItem{
		{Track: Track{Title: "A"}, Position: 1},
		{Track: Track{Title: "B"}, Position: 2, IsCurrent: true},
		{Track: Track{Title: "C"}, Position: 3},
	}}

	current, upcoming := s.Partition()
	if current == nil || current.Title != "B" {
		t.Fatalf("current = %v, want B", current)
	}
	if !equal(titles(upcoming), []string{"A", "C"}) {
		t.Errorf("upcoming = %v, want [A C]", titles(upcoming))
	}
	if s.CurrentCount() != 1 {
		t.Errorf("CurrentCount() = %d, want 1", s.CurrentCount())
	}
}

func TestSnapshotPartitionNoCurrent(t *testing.T) {
	s := Snapshot{Queue: []QueueItem{{Track: Track{Title: "A"}}}}
	current, upcoming := s.Partition()
	if current != nil {
		t.Errorf("current = %v, want nil", current)
	}
	if len(upcoming) != 1 {
		t.Errorf("len(upcoming) = %d, want 1", len(upcoming))
	}
}

func TestPlayerStateCloneIsDeep(t *testing.T) {
	s := PlayerState{
		CurrentTrack: &Track{Title: "A"},
		Queue:        tracks("B"),
	}
	c := s.Clone()
	c.CurrentTrack.Title = "changed"
	c.Queue[0].Title = "changed"
	if s.CurrentTrack.Title != "A" || s.Queue[0].Title != "B" {
		t.Error("Clone() shares memory with the original")
	}
}

func TestPlayerStateActive(t *testing.T) {
	s := PlayerState{
		CurrentTrack:       &Track{Title: "server"},
		DeviceCurrentTrack: &Track{Title: "device"},
	}
	if cur, _, _ := s.Active(); cur.Title != "server" {
		t.Errorf("Active() in server mode = %q", cur.Title)
	}
	s.IsOnDeviceMode = true
	if cur, _, _ := s.Active(); cur.Title != "device" {
		t.Errorf("Active() in device mode = %q", cur.Title)
	}
}

func TestServerCanManage(t *testing.T) {
	tests := []struct {
		name   string
		server Server
		want   bool
	}{
		{"owner", Server{Owner: true}, true},
		{"manage bit", Server{Permissions: 0x20}, true},
		{"admin without manage bit", Server{Permissions: 0x8}, false},
		{"all bits", Server{Permissions: 0x7fffffff}, true},
		{"none", Server{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.server.CanManage(); got != tt.want {
				t.Errorf("CanManage() = %v, want %v", got, tt.want)
			}
		})
	}
}
