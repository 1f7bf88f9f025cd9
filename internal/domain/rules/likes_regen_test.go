package rules

import (
	"testing"
	"time"
)

func TestRegenerateLikesAddsWholeHoursOnly(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		likes       int
		anchor      time.Time
		wantLikes   int
		wantChanged bool
	}{
		{name: "three hours from empty", likes: 0, anchor: now.Add(-3 * time.Hour), wantLikes: 3, wantChanged: true},
		{name: "capped at max", likes: 2, anchor: now.Add(-10 * time.Hour), wantLikes: 5, wantChanged: true},
		{name: "less than an hour", likes: 1, anchor: now.Add(-59 * time.Minute), wantLikes: 1, wantChanged: false},
		{name: "already full", likes: 5, anchor: now.Add(-48 * time.Hour), wantLikes: 5, wantChanged: false},
		{name: "fraction dropped", likes: 0, anchor: now.Add(-(time.Hour + 50*time.Minute)), wantLikes: 1, wantChanged: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RegenerateLikes(tc.likes, tc.anchor, now, MaxFreeLikes, LikeRegenInterval)
			if got.Likes != tc.wantLikes {
				t.Fatalf("unexpected likes: got %d want %d", got.Likes, tc.wantLikes)
			}
			if got.Changed != tc.wantChanged {
				t.Fatalf("unexpected changed flag: got %v want %v", got.Changed, tc.wantChanged)
			}
			if got.Changed && !got.Anchor.Equal(now) {
				t.Fatalf("anchor should move to now, got %s", got.Anchor)
			}
			if !got.Changed && !got.Anchor.Equal(tc.anchor) {
				t.Fatalf("anchor should stay untouched, got %s", got.Anchor)
			}
		})
	}
}

func TestNextLikeAtIsNilAtCap(t *testing.T) {
	anchor := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	if next := NextLikeAt(MaxFreeLikes, anchor, MaxFreeLikes, LikeRegenInterval); next != nil {
		t.Fatalf("expected nil next like at cap, got %v", next)
	}
	next := NextLikeAt(1, anchor, MaxFreeLikes, LikeRegenInterval)
	if next == nil || !next.Equal(anchor.Add(time.Hour)) {
		t.Fatalf("unexpected next like time: %v", next)
	}
}
