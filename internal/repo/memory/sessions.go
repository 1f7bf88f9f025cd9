package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
)

func (s *Store) GetSession(_ context.Context, id uuid.UUID) (model.BlindSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return model.BlindSession{}, model.ErrRecordNotFound
	}
	return session, nil
}

func (s *Store) CurrentForUser(_ context.Context, userID int64) (model.BlindSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		current model.BlindSession
		found   bool
	)
	for _, session := range s.sessions {
		if !session.HasParticipant(userID) || !session.Status.Live() {
			continue
		}
		if !found || session.StartTime.After(current.StartTime) {
			current = session
			found = true
		}
	}
	if !found {
		return model.BlindSession{}, model.ErrRecordNotFound
	}
	return current, nil
}

func (s *Store) MarkEnded(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return false, model.ErrRecordNotFound
	}
	if !session.Status.Live() {
		return false, nil
	}
	session.Status = enums.SessionStatusEnded
	s.sessions[id] = session
	return true, nil
}

func (s *Store) Extend(_ context.Context, ext model.SessionExtension) (model.BlindSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[ext.SessionID]
	if !ok {
		return model.BlindSession{}, model.ErrRecordNotFound
	}
	if session.Status != ext.From || !session.HasParticipant(ext.RequesterID) {
		return model.BlindSession{}, model.ErrConditionFailed
	}
	if ext.From == enums.SessionStatusEnded {
		if s.hasLiveLocked(session.User1ID, ext.Now, session.ID) || s.hasLiveLocked(session.User2ID, ext.Now, session.ID) {
			return model.BlindSession{}, model.ErrDuplicate
		}
	}

	requester := ext.RequesterID
	session.Status = enums.SessionStatusExtended
	session.ExpiresAt = ext.ExpiresAt
	session.Extended = true
	session.ExtendedBy = &requester
	s.sessions[session.ID] = session
	return session, nil
}

func (s *Store) AppendMessage(_ context.Context, msg model.BlindMessage) (model.BlindMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[msg.SessionID]
	if !ok {
		return model.BlindMessage{}, model.ErrRecordNotFound
	}
	if !session.Status.Live() || msg.CreatedAt.After(session.ExpiresAt) {
		return model.BlindMessage{}, model.ErrConditionFailed
	}

	s.seq++
	msg.Seq = s.seq
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return msg, nil
}

func (s *Store) ListMessages(_ context.Context, sessionID uuid.UUID) ([]model.BlindMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.BlindMessage, len(s.messages[sessionID]))
	copy(items, s.messages[sessionID])
	return items, nil
}

func (s *Store) ExpireOverdue(_ context.Context, now time.Time) (map[enums.SessionStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ended := make(map[enums.SessionStatus]int64)
	for id, session := range s.sessions {
		if session.Status.Live() && now.After(session.ExpiresAt) {
			ended[session.Status]++
			session.Status = enums.SessionStatusEnded
			s.sessions[id] = session
		}
	}
	return ended, nil
}

func (s *Store) hasLiveLocked(userID int64, now time.Time, except uuid.UUID) bool {
	for id, session := range s.sessions {
		if id == except || !session.HasParticipant(userID) || !session.Status.Live() {
			continue
		}
		if !now.After(session.ExpiresAt) {
			return true
		}
	}
	return false
}

func (s *Store) endOverdueLocked(now time.Time, userIDs ...int64) {
	for id, session := range s.sessions {
		if !session.Status.Live() || !now.After(session.ExpiresAt) {
			continue
		}
		for _, userID := range userIDs {
			if session.HasParticipant(userID) {
				session.Status = enums.SessionStatusEnded
				s.sessions[id] = session
				break
			}
		}
	}
}

// PutSession stores a session as is. It is meant for seeding.
func (s *Store) PutSession(session model.BlindSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
}

// LiveSessions returns every active or extended session userID takes part in.
func (s *Store) LiveSessions(userID int64) []model.BlindSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	var live []model.BlindSession
	for _, session := range s.sessions {
		if session.HasParticipant(userID) && session.Status.Live() {
			live = append(live, session)
		}
	}
	return live
}
