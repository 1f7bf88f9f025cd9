package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
)

func (s *Store) Create(_ context.Context, like model.Like) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := likeKey{sender: like.SenderID, receiver: like.ReceiverID}
	if _, ok := s.likePair[key]; ok {
		return model.ErrDuplicate
	}
	s.likes[like.ID] = like
	s.likePair[key] = like.ID
	return nil
}

func (s *Store) Exists(_ context.Context, senderID, receiverID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.likePair[likeKey{sender: senderID, receiver: receiverID}]
	return ok, nil
}

func (s *Store) GetLike(_ context.Context, id uuid.UUID) (model.Like, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	like, ok := s.likes[id]
	if !ok {
		return model.Like{}, model.ErrRecordNotFound
	}
	return like, nil
}

func (s *Store) Transition(_ context.Context, id uuid.UUID, from, to enums.LikeStatus, at time.Time) (model.Like, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	like, ok := s.likes[id]
	if !ok {
		return model.Like{}, model.ErrRecordNotFound
	}
	if like.Status != from {
		return model.Like{}, model.ErrConditionFailed
	}

	like.Status = to
	stamp := at
	switch to {
	case enums.LikeStatusRevealed:
		if like.RevealedAt == nil {
			like.RevealedAt = &stamp
		}
	case enums.LikeStatusChatting:
		if like.RevealedAt == nil {
			like.RevealedAt = &stamp
		}
		if like.ChatStartedAt == nil {
			like.ChatStartedAt = &stamp
		}
	}
	s.likes[id] = like
	return like, nil
}

func (s *Store) ListIncoming(_ context.Context, receiverID int64, limit int) ([]model.IncomingLike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	likes := s.filterLikesLocked(func(l model.Like) bool { return l.ReceiverID == receiverID }, limit)
	items := make([]model.IncomingLike, 0, len(likes))
	for _, like := range likes {
		items = append(items, model.IncomingLike{Like: like, Sender: s.users[like.SenderID].profile})
	}
	return items, nil
}

func (s *Store) ListOutgoing(_ context.Context, senderID int64, limit int) ([]model.Like, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filterLikesLocked(func(l model.Like) bool { return l.SenderID == senderID }, limit), nil
}

func (s *Store) filterLikesLocked(keep func(model.Like) bool, limit int) []model.Like {
	items := make([]model.Like, 0)
	for _, like := range s.likes {
		if keep(like) {
			items = append(items, like)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
