package matchqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
	"github.com/ivankudzin/blinddate/internal/domain/rules"
	"github.com/ivankudzin/blinddate/internal/infra/metrics"
	ratesvc "github.com/ivankudzin/blinddate/internal/services/rate"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("user not found")
	ErrProfileIncomplete = errors.New("dating profile is incomplete")
	ErrAlreadyInSession  = errors.New("already in a blind date session")
	ErrDependenciesNil   = errors.New("match queue dependencies are not configured")
)

type ProfileStore interface {
	GetDatingProfile(ctx context.Context, userID int64) (model.DatingProfile, error)
}

type QueueStore interface {
	GetEntry(ctx context.Context, userID int64) (model.QueueEntry, error)
	ListCandidates(ctx context.Context, filter model.QueueFilter) ([]model.QueueEntry, error)
	// Enqueue inserts the entry unless the user already has one and reports whether it did.
	Enqueue(ctx context.Context, entry model.QueueEntry) (bool, error)
	Remove(ctx context.Context, userID int64) (bool, error)
	// ClaimAndStart removes both queue entries and inserts session in one
	// transaction. session.User1ID is the claimed candidate. It returns
	// model.ErrConditionFailed when the candidate entry is gone or the
	// candidate is already in a live session, and model.ErrDuplicate when the
	// requester is.
	ClaimAndStart(ctx context.Context, session model.BlindSession, now time.Time) error
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionLookup resolves the caller's live session, applying lazy expiry.
type SessionLookup interface {
	Current(ctx context.Context, userID int64) (model.BlindSession, bool, error)
}

type RateLimiter interface {
	Check(ctx context.Context, action ratesvc.Action, userID int64) error
}

type Config struct {
	QueueTTL        time.Duration
	SessionDuration time.Duration
	CandidateLimit  int
}

type JoinStatus string

const (
	JoinMatched          JoinStatus = "matched"
	JoinSearching        JoinStatus = "searching"
	JoinAlreadySearching JoinStatus = "already_searching"
)

type JoinResult struct {
	Status    JoinStatus
	Session   *model.BlindSession
	JoinedAt  time.Time
	ExpiresAt time.Time
}

type State string

const (
	StateInSession State = "in_session"
	StateSearching State = "searching"
	StateIdle      State = "idle"
)

type StatusResult struct {
	State     State
	Session   *model.BlindSession
	JoinedAt  *time.Time
	ExpiresAt *time.Time
}

type Service struct {
	profiles ProfileStore
	queue    QueueStore
	sessions SessionLookup
	limiter  RateLimiter
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	newID    func() uuid.UUID
}

func NewService(profiles ProfileStore, queue QueueStore, sessions SessionLookup, cfg Config, logger *zap.Logger) *Service {
	if cfg.QueueTTL <= 0 {
		cfg.QueueTTL = rules.QueueTTL
	}
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = rules.SessionDuration
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		profiles: profiles,
		queue:    queue,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.New,
	}
}

func (s *Service) AttachRateLimiter(limiter RateLimiter) {
	s.limiter = limiter
}

func (s *Service) Join(ctx context.Context, userID int64) (JoinResult, error) {
	if userID <= 0 {
		return JoinResult{}, ErrValidation
	}
	if s.profiles == nil || s.queue == nil || s.sessions == nil {
		return JoinResult{}, ErrDependenciesNil
	}
	if s.limiter != nil {
		if err := s.limiter.Check(ctx, ratesvc.ActionJoin, userID); err != nil {
			return JoinResult{}, err
		}
	}

	profile, err := s.profiles.GetDatingProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return JoinResult{}, ErrNotFound
		}
		return JoinResult{}, fmt.Errorf("get dating profile: %w", err)
	}
	if !profile.Ready() {
		return JoinResult{}, ErrProfileIncomplete
	}

	_, inSession, err := s.sessions.Current(ctx, userID)
	if err != nil {
		return JoinResult{}, fmt.Errorf("lookup current session: %w", err)
	}
	if inSession {
		return JoinResult{}, ErrAlreadyInSession
	}

	now := s.now().UTC().Truncate(time.Microsecond)

	existing, err := s.queue.GetEntry(ctx, userID)
	switch {
	case err == nil && !existing.ExpiredAt(now, s.cfg.QueueTTL):
		metrics.RecordMatch(string(JoinAlreadySearching))
		return s.searching(JoinAlreadySearching, existing), nil
	case err == nil:
		if _, err := s.queue.Remove(ctx, userID); err != nil {
			return JoinResult{}, fmt.Errorf("remove expired queue entry: %w", err)
		}
	case !errors.Is(err, model.ErrRecordNotFound):
		return JoinResult{}, fmt.Errorf("get queue entry: %w", err)
	}

	filter := model.QueueFilter{
		ExcludeUserID: userID,
		JoinedAfter:   now.Add(-s.cfg.QueueTTL),
		Limit:         s.cfg.CandidateLimit,
		AcceptedBy:    rules.AcceptingPreferences(profile.Gender),
	}
	if gender, ok := rules.WantedGender(profile.LookingFor); ok {
		filter.Gender = &gender
	}

	candidates, err := s.queue.ListCandidates(ctx, filter)
	if err != nil {
		return JoinResult{}, fmt.Errorf("list queue candidates: %w", err)
	}

	for _, candidate := range candidates {
		if candidate.UserID == userID || candidate.ExpiredAt(now, s.cfg.QueueTTL) {
			continue
		}
		if !rules.Compatible(profile.Gender, profile.LookingFor, candidate.Gender, candidate.LookingFor) {
			continue
		}

		session := model.BlindSession{
			ID:        s.newID(),
			User1ID:   candidate.UserID,
			User2ID:   userID,
			Status:    enums.SessionStatusActive,
			StartTime: now,
			ExpiresAt: now.Add(s.cfg.SessionDuration),
		}

		err := s.queue.ClaimAndStart(ctx, session, now)
		switch {
		case err == nil:
			s.logger.Info("blind date matched",
				zap.String("session_id", session.ID.String()),
				zap.Int64("user1_id", session.User1ID),
				zap.Int64("user2_id", session.User2ID),
			)
			metrics.RecordMatch(string(JoinMatched))
			return JoinResult{Status: JoinMatched, Session: &session}, nil
		case errors.Is(err, model.ErrConditionFailed):
			s.logger.Debug("queue claim lost", zap.Int64("candidate_id", candidate.UserID))
			continue
		case errors.Is(err, model.ErrDuplicate):
			return JoinResult{}, ErrAlreadyInSession
		default:
			return JoinResult{}, fmt.Errorf("claim queue candidate: %w", err)
		}
	}

	entry := model.QueueEntry{
		UserID:     userID,
		Gender:     profile.Gender,
		LookingFor: profile.LookingFor,
		JoinedAt:   now,
	}
	inserted, err := s.queue.Enqueue(ctx, entry)
	if err != nil {
		return JoinResult{}, fmt.Errorf("enqueue: %w", err)
	}
	if !inserted {
		current, err := s.queue.GetEntry(ctx, userID)
		if err != nil {
			return JoinResult{}, fmt.Errorf("get queue entry: %w", err)
		}
		metrics.RecordMatch(string(JoinAlreadySearching))
		return s.searching(JoinAlreadySearching, current), nil
	}

	// A concurrent joiner may have claimed the previous entry after the
	// session check above.
	session, inSession, err := s.sessions.Current(ctx, userID)
	if err != nil {
		return JoinResult{}, fmt.Errorf("recheck current session: %w", err)
	}
	if inSession {
		if _, err := s.queue.Remove(ctx, userID); err != nil {
			return JoinResult{}, fmt.Errorf("drop stale queue entry: %w", err)
		}
		metrics.RecordMatch(string(JoinMatched))
		return JoinResult{Status: JoinMatched, Session: &session}, nil
	}

	metrics.RecordMatch(string(JoinSearching))
	return s.searching(JoinSearching, entry), nil
}

func (s *Service) Leave(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.queue == nil {
		return ErrDependenciesNil
	}

	if _, err := s.queue.Remove(ctx, userID); err != nil {
		return fmt.Errorf("remove queue entry: %w", err)
	}
	return nil
}

func (s *Service) Status(ctx context.Context, userID int64) (StatusResult, error) {
	if userID <= 0 {
		return StatusResult{}, ErrValidation
	}
	if s.queue == nil || s.sessions == nil {
		return StatusResult{}, ErrDependenciesNil
	}

	session, inSession, err := s.sessions.Current(ctx, userID)
	if err != nil {
		return StatusResult{}, fmt.Errorf("lookup current session: %w", err)
	}
	if inSession {
		return StatusResult{State: StateInSession, Session: &session}, nil
	}

	entry, err := s.queue.GetEntry(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return StatusResult{State: StateIdle}, nil
		}
		return StatusResult{}, fmt.Errorf("get queue entry: %w", err)
	}

	now := s.now().UTC()
	if entry.ExpiredAt(now, s.cfg.QueueTTL) {
		if _, err := s.queue.Remove(ctx, userID); err != nil {
			s.logger.Warn("failed to drop expired queue entry", zap.Error(err), zap.Int64("user_id", userID))
		}
		return StatusResult{State: StateIdle}, nil
	}

	joinedAt := entry.JoinedAt
	expiresAt := entry.JoinedAt.Add(s.cfg.QueueTTL)
	return StatusResult{
		State:     StateSearching,
		JoinedAt:  &joinedAt,
		ExpiresAt: &expiresAt,
	}, nil
}

// PurgeExpired drops queue entries older than the TTL.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	if s.queue == nil {
		return 0, ErrDependenciesNil
	}
	return s.queue.PurgeExpired(ctx, s.now().UTC().Add(-s.cfg.QueueTTL))
}

func (s *Service) searching(status JoinStatus, entry model.QueueEntry) JoinResult {
	return JoinResult{
		Status:    status,
		JoinedAt:  entry.JoinedAt,
		ExpiresAt: entry.JoinedAt.Add(s.cfg.QueueTTL),
	}
}
