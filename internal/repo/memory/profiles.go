package memory

import (
	"context"

	"github.com/ivankudzin/blinddate/internal/domain/model"
)

func (s *Store) GetDatingProfile(_ context.Context, userID int64) (model.DatingProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return model.DatingProfile{}, model.ErrRecordNotFound
	}
	return user.dating, nil
}

func (s *Store) GetPublicProfile(_ context.Context, userID int64) (model.PublicProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return model.PublicProfile{}, model.ErrRecordNotFound
	}
	return user.profile, nil
}

func (s *Store) GetUser(_ context.Context, userID int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return model.User{}, model.ErrRecordNotFound
	}
	return model.User{
		ID:          userID,
		DisplayName: user.profile.DisplayName,
		Role:        user.role,
	}, nil
}
