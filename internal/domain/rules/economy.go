package rules

import "time"

const (
	MaxFreeLikes      = 5
	LikeRegenInterval = time.Hour

	CostReveal     = 70
	CostStartChat  = 100
	CostDirectChat = 150
	CostExtension  = 100

	CostLikesPack = 100
	LikesPackSize = 5
	CostChatSlot  = 100

	SessionDuration   = 5 * time.Minute
	ExtensionDuration = 10 * time.Minute
	QueueTTL          = 10 * time.Minute

	MaxMessageLength = 1000
)
