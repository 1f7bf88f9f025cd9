package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
)

// Store keeps every table in process memory behind one mutex. It implements
// the same store interfaces as the postgres repos and backs the memory
// storage driver and service tests.
type Store struct {
	mu       sync.Mutex
	defaults model.WalletDefaults
	now      func() time.Time

	users    map[int64]userRecord
	wallets  map[int64]model.Wallet
	queue    map[int64]model.QueueEntry
	sessions map[uuid.UUID]model.BlindSession
	messages map[uuid.UUID][]model.BlindMessage
	likes    map[uuid.UUID]model.Like
	likePair map[likeKey]uuid.UUID
	seq      int64
}

type userRecord struct {
	profile model.PublicProfile
	dating  model.DatingProfile
	role    enums.Role
}

type likeKey struct {
	sender   int64
	receiver int64
}

type UserSeed struct {
	Profile model.PublicProfile
	Dating  model.DatingProfile
	Role    enums.Role
	// Wallet overrides the defaults when set.
	Wallet *model.Wallet
}

func NewStore(defaults model.WalletDefaults) *Store {
	return &Store{
		defaults: defaults,
		now:      time.Now,
		users:    make(map[int64]userRecord),
		wallets:  make(map[int64]model.Wallet),
		queue:    make(map[int64]model.QueueEntry),
		sessions: make(map[uuid.UUID]model.BlindSession),
		messages: make(map[uuid.UUID][]model.BlindMessage),
		likes:    make(map[uuid.UUID]model.Like),
		likePair: make(map[likeKey]uuid.UUID),
	}
}

func (s *Store) PutUser(seed UserSeed) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := seed.Profile.UserID
	seed.Dating.UserID = id
	if seed.Role == "" {
		seed.Role = enums.RoleUser
	}
	s.users[id] = userRecord{profile: seed.Profile, dating: seed.Dating, role: seed.Role}

	if seed.Wallet != nil {
		wallet := *seed.Wallet
		wallet.UserID = id
		s.wallets[id] = wallet
		return
	}
	if _, ok := s.wallets[id]; !ok {
		s.wallets[id] = s.defaultWallet(id)
	}
}

func (s *Store) defaultWallet(userID int64) model.Wallet {
	return model.Wallet{
		UserID:          userID,
		Coins:           s.defaults.Coins,
		Likes:           s.defaults.Likes,
		LastLikeRegenAt: s.now().UTC(),
		ChatSlots:       s.defaults.ChatSlots,
	}
}

func sortQueue(entries []model.QueueEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].JoinedAt.Equal(entries[j].JoinedAt) {
			return entries[i].UserID < entries[j].UserID
		}
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})
}
