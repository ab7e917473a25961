package availability

import (
	"testing"
	"time"
)

func TestOverlaps(t *testing.T) {
	day := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"touching", Interval{at(10), at(12)}, Interval{at(12), at(14)}, false},
		{"touching reversed", Interval{at(12), at(14)}, Interval{at(10), at(12)}, false},
		{"partial", Interval{at(10), at(12)}, Interval{at(11), at(13)}, true},
		{"contained", Interval{at(10), at(14)}, Interval{at(11), at(12)}, true},
		{"disjoint", Interval{at(8), at(9)}, Interval{at(10), at(11)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.a, tc.b); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFreeSlots_SkipsBusy(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	busy := []Interval{{Start: day.Add(10 * time.Hour), End: day.Add(12 * time.Hour)}}

	slots := FreeSlots(day.Add(9*time.Hour), day.Add(14*time.Hour), 2*time.Hour, time.Hour, busy, day)
	want := []time.Time{day.Add(12 * time.Hour)}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %v", len(want), slots)
	}
	if !slots[0].Equal(want[0]) {
		t.Fatalf("expected 12:00, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestFreeSlots_SkipsPast(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	now := day.Add(9*time.Hour + 31*time.Minute)
	slots := FreeSlots(day.Add(9*time.Hour), day.Add(10*time.Hour), 15*time.Minute, 15*time.Minute, nil, now)
	if len(slots) != 1 || !slots[0].Equal(day.Add(9*time.Hour+45*time.Minute)) {
		t.Fatalf("expected only 09:45, got %v", slots)
	}
}

func TestFreeSlots_InvalidInput(t *testing.T) {
	day := time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC)
	if FreeSlots(day, day.Add(time.Hour), 0, time.Minute, nil, day) != nil {
		t.Fatal("zero duration must return nil")
	}
	if FreeSlots(day, day, time.Minute, time.Minute, nil, day) != nil {
		t.Fatal("empty window must return nil")
	}
	if FreeSlots(day, day.Add(time.Hour), 2*time.Hour, time.Minute, nil, day) != nil {
		t.Fatal("duration longer than window must return nil")
	}
}
