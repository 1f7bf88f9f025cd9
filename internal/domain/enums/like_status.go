package enums

type LikeStatus string

const (
	LikeStatusPending  LikeStatus = "pending"
	LikeStatusRevealed LikeStatus = "revealed"
	LikeStatusChatting LikeStatus = "chatting"
	LikeStatusDeclined LikeStatus = "declined"
)

// Identified reports whether the receiver may see who sent the like.
func (s LikeStatus) Identified() bool {
	return s == LikeStatusRevealed || s == LikeStatusChatting
}
