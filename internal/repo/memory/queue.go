package memory

import (
	"context"
	"time"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
)

func (s *Store) GetEntry(_ context.Context, userID int64) (model.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.queue[userID]
	if !ok {
		return model.QueueEntry{}, model.ErrRecordNotFound
	}
	return entry, nil
}

func (s *Store) ListCandidates(_ context.Context, filter model.QueueFilter) ([]model.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.QueueEntry, 0, len(s.queue))
	for _, entry := range s.queue {
		if entry.UserID == filter.ExcludeUserID {
			continue
		}
		if filter.Gender != nil && entry.Gender != *filter.Gender {
			continue
		}
		if filter.AcceptedBy != nil && !containsPreference(filter.AcceptedBy, entry.LookingFor) {
			continue
		}
		if !filter.JoinedAfter.IsZero() && entry.JoinedAt.Before(filter.JoinedAfter) {
			continue
		}
		items = append(items, entry)
	}
	sortQueue(items)

	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) Enqueue(_ context.Context, entry model.QueueEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queue[entry.UserID]; ok {
		return false, nil
	}
	s.queue[entry.UserID] = entry
	return true, nil
}

func (s *Store) Remove(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queue[userID]; !ok {
		return false, nil
	}
	delete(s.queue, userID)
	return true, nil
}

func (s *Store) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for userID, entry := range s.queue {
		if entry.JoinedAt.Before(cutoff) {
			delete(s.queue, userID)
			purged++
		}
	}
	return purged, nil
}

func (s *Store) ClaimAndStart(_ context.Context, session model.BlindSession, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidateID, requesterID := session.User1ID, session.User2ID
	s.endOverdueLocked(now, candidateID, requesterID)

	if s.hasLiveLocked(requesterID, now, session.ID) {
		return model.ErrDuplicate
	}
	if _, ok := s.queue[candidateID]; !ok {
		return model.ErrConditionFailed
	}
	if s.hasLiveLocked(candidateID, now, session.ID) {
		return model.ErrConditionFailed
	}

	delete(s.queue, candidateID)
	delete(s.queue, requesterID)
	session.Status = enums.SessionStatusActive
	s.sessions[session.ID] = session
	return nil
}

func containsPreference(values []enums.LookingFor, v enums.LookingFor) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
