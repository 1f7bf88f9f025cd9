package rules

import "time"

type LikeRegen struct {
	Likes   int
	Added   int
	Anchor  time.Time
	Changed bool
}

// RegenerateLikes adds one like per whole interval elapsed since anchor, up to maxLikes.
// When anything is added the anchor moves to now, so the fractional remainder is dropped.
func RegenerateLikes(likes int, anchor, now time.Time, maxLikes int, interval time.Duration) LikeRegen {
	result := LikeRegen{Likes: likes, Anchor: anchor}
	if interval <= 0 || likes >= maxLikes {
		return result
	}

	elapsed := int(now.Sub(anchor) / interval)
	if elapsed <= 0 {
		return result
	}

	add := maxLikes - likes
	if elapsed < add {
		add = elapsed
	}

	result.Likes = likes + add
	result.Added = add
	result.Anchor = now
	result.Changed = true
	return result
}

// NextLikeAt returns when the next like will be granted, or nil at cap.
func NextLikeAt(likes int, anchor time.Time, maxLikes int, interval time.Duration) *time.Time {
	if likes >= maxLikes || interval <= 0 {
		return nil
	}
	next := anchor.Add(interval).UTC()
	return &next
}
