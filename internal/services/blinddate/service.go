package blinddate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
	"github.com/ivankudzin/blinddate/internal/domain/rules"
	"github.com/ivankudzin/blinddate/internal/infra/metrics"
	"github.com/ivankudzin/blinddate/internal/services/ledger"
	ratesvc "github.com/ivankudzin/blinddate/internal/services/rate"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrAlreadyExtended  = errors.New("session already extended")
	ErrStateChanged     = errors.New("session state changed")
	ErrAlreadyInSession = errors.New("participant is already in another session")
	ErrDependenciesNil  = errors.New("blind date dependencies are not configured")
)

type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (model.BlindSession, error)
	// CurrentForUser returns the user's session whose stored status is live,
	// regardless of its deadline.
	CurrentForUser(ctx context.Context, userID int64) (model.BlindSession, error)
	// MarkEnded moves a live session to ended and reports whether it changed anything.
	MarkEnded(ctx context.Context, id uuid.UUID) (bool, error)
	// Extend returns model.ErrConditionFailed when the status is no longer ext.From
	// and model.ErrDuplicate when reviving would give a participant a second live session.
	Extend(ctx context.Context, ext model.SessionExtension) (model.BlindSession, error)
	// AppendMessage returns model.ErrConditionFailed unless the session is live
	// and its deadline is not before msg.CreatedAt.
	AppendMessage(ctx context.Context, msg model.BlindMessage) (model.BlindMessage, error)
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]model.BlindMessage, error)
	// ExpireOverdue ends overdue live sessions and counts them by their previous status.
	ExpireOverdue(ctx context.Context, now time.Time) (map[enums.SessionStatus]int64, error)
}

type QueueRemover interface {
	Remove(ctx context.Context, userID int64) (bool, error)
}

type ProfileReader interface {
	GetPublicProfile(ctx context.Context, userID int64) (model.PublicProfile, error)
}

type Ledger interface {
	Wallet(ctx context.Context, userID int64) (model.Wallet, error)
	DebitCoins(ctx context.Context, userID, amount int64) (model.Wallet, error)
	Refund(ctx context.Context, userID, amount int64)
}

type RateLimiter interface {
	Check(ctx context.Context, action ratesvc.Action, userID int64) error
}

type Config struct {
	ExtensionCost     int64
	ExtensionDuration time.Duration
	MaxMessageLength  int
}

// View is a session as seen by one participant. Partner is only set for the
// participant who paid for the extension.
type View struct {
	Session  model.BlindSession
	Partner  *model.PublicProfile
	TimeLeft time.Duration
}

type ExtendResult struct {
	View      View
	CoinsLeft int64
}

type Service struct {
	sessions SessionStore
	queue    QueueRemover
	profiles ProfileReader
	ledger   Ledger
	limiter  RateLimiter
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	newID    func() uuid.UUID
}

func NewService(sessions SessionStore, queue QueueRemover, profiles ProfileReader, wallet Ledger, cfg Config, logger *zap.Logger) *Service {
	if cfg.ExtensionCost <= 0 {
		cfg.ExtensionCost = rules.CostExtension
	}
	if cfg.ExtensionDuration <= 0 {
		cfg.ExtensionDuration = rules.ExtensionDuration
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = rules.MaxMessageLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		sessions: sessions,
		queue:    queue,
		profiles: profiles,
		ledger:   wallet,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.New,
	}
}

func (s *Service) AttachRateLimiter(limiter RateLimiter) {
	s.limiter = limiter
}

// Current returns the user's live session. A session whose deadline has
// passed is ended on the way and reported as absent.
func (s *Service) Current(ctx context.Context, userID int64) (model.BlindSession, bool, error) {
	if userID <= 0 {
		return model.BlindSession{}, false, ErrValidation
	}
	if s.sessions == nil {
		return model.BlindSession{}, false, ErrDependenciesNil
	}

	session, err := s.sessions.CurrentForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return model.BlindSession{}, false, nil
		}
		return model.BlindSession{}, false, fmt.Errorf("get current session: %w", err)
	}

	session, err = s.evaluate(ctx, session)
	if err != nil {
		return model.BlindSession{}, false, err
	}
	if !session.Status.Live() {
		return model.BlindSession{}, false, nil
	}
	return session, true, nil
}

func (s *Service) Describe(ctx context.Context, session model.BlindSession, userID int64) (View, error) {
	view := View{
		Session:  session,
		TimeLeft: rules.SessionTimeLeft(session, s.now().UTC()),
	}
	if session.ExtendedBy == nil || *session.ExtendedBy != userID || s.profiles == nil {
		return view, nil
	}

	partner, err := s.profiles.GetPublicProfile(ctx, session.Partner(userID))
	if err != nil {
		return View{}, fmt.Errorf("get partner profile: %w", err)
	}
	view.Partner = &partner
	return view, nil
}

func (s *Service) SendMessage(ctx context.Context, sessionID uuid.UUID, senderID int64, text string) (model.BlindMessage, error) {
	text = strings.TrimSpace(text)
	if senderID <= 0 || sessionID == uuid.Nil || text == "" || utf8.RuneCountInString(text) > s.cfg.MaxMessageLength {
		return model.BlindMessage{}, ErrValidation
	}
	if s.limiter != nil {
		if err := s.limiter.Check(ctx, ratesvc.ActionMessage, senderID); err != nil {
			return model.BlindMessage{}, err
		}
	}

	session, err := s.load(ctx, sessionID, senderID)
	if err != nil {
		return model.BlindMessage{}, err
	}
	if !session.Status.Live() {
		return model.BlindMessage{}, ErrSessionExpired
	}

	msg, err := s.sessions.AppendMessage(ctx, model.BlindMessage{
		ID:        s.newID(),
		SessionID: session.ID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			if _, err := s.load(ctx, sessionID, senderID); err != nil && !errors.Is(err, ErrNotFound) {
				s.logger.Warn("failed to settle session after rejected message", zap.Error(err))
			}
			return model.BlindMessage{}, ErrSessionExpired
		}
		return model.BlindMessage{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

func (s *Service) Messages(ctx context.Context, sessionID uuid.UUID, userID int64) (View, []model.BlindMessage, error) {
	if userID <= 0 || sessionID == uuid.Nil {
		return View{}, nil, ErrValidation
	}

	session, err := s.load(ctx, sessionID, userID)
	if err != nil {
		return View{}, nil, err
	}

	messages, err := s.sessions.ListMessages(ctx, session.ID)
	if err != nil {
		return View{}, nil, fmt.Errorf("list messages: %w", err)
	}

	view, err := s.Describe(ctx, session, userID)
	if err != nil {
		return View{}, nil, err
	}
	return view, messages, nil
}

// Extend charges the requester and gives the session ExtensionDuration from
// now. An ended session can be revived this way as long as neither
// participant has moved on to another live session.
func (s *Service) Extend(ctx context.Context, sessionID uuid.UUID, requesterID int64) (ExtendResult, error) {
	if requesterID <= 0 || sessionID == uuid.Nil {
		return ExtendResult{}, ErrValidation
	}
	if s.ledger == nil || s.profiles == nil {
		return ExtendResult{}, ErrDependenciesNil
	}

	session, err := s.load(ctx, sessionID, requesterID)
	if err != nil {
		return ExtendResult{}, err
	}
	if session.Status == enums.SessionStatusExtended {
		return ExtendResult{}, ErrAlreadyExtended
	}

	partnerID := session.Partner(requesterID)
	partner, err := s.profiles.GetPublicProfile(ctx, partnerID)
	if err != nil {
		return ExtendResult{}, fmt.Errorf("get partner profile: %w", err)
	}

	wallet, err := s.ledger.Wallet(ctx, requesterID)
	if err != nil {
		return ExtendResult{}, err
	}
	if wallet.Coins < s.cfg.ExtensionCost {
		return ExtendResult{}, ledger.ErrInsufficientFunds
	}

	if session.Status == enums.SessionStatusEnded {
		for _, participant := range []int64{requesterID, partnerID} {
			other, busy, err := s.Current(ctx, participant)
			if err != nil {
				return ExtendResult{}, err
			}
			if busy && other.ID != session.ID {
				return ExtendResult{}, ErrAlreadyInSession
			}
		}
	}

	wallet, err = s.ledger.DebitCoins(ctx, requesterID, s.cfg.ExtensionCost)
	if err != nil {
		return ExtendResult{}, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	extended, err := s.sessions.Extend(ctx, model.SessionExtension{
		SessionID:   session.ID,
		RequesterID: requesterID,
		From:        session.Status,
		ExpiresAt:   now.Add(s.cfg.ExtensionDuration),
		Now:         now,
	})
	if err != nil {
		s.ledger.Refund(ctx, requesterID, s.cfg.ExtensionCost)
		switch {
		case errors.Is(err, model.ErrDuplicate):
			return ExtendResult{}, ErrAlreadyInSession
		case errors.Is(err, model.ErrConditionFailed):
			latest, getErr := s.sessions.GetSession(ctx, session.ID)
			if getErr == nil && latest.Status == enums.SessionStatusExtended {
				return ExtendResult{}, ErrAlreadyExtended
			}
			return ExtendResult{}, ErrStateChanged
		default:
			return ExtendResult{}, fmt.Errorf("extend session: %w", err)
		}
	}

	metrics.RecordSessionTransition(string(session.Status), string(enums.SessionStatusExtended))
	s.logger.Info("blind date extended",
		zap.String("session_id", session.ID.String()),
		zap.Int64("requester_id", requesterID),
		zap.String("from", string(session.Status)),
	)

	return ExtendResult{
		View: View{
			Session:  extended,
			Partner:  &partner,
			TimeLeft: rules.SessionTimeLeft(extended, now),
		},
		CoinsLeft: wallet.Coins,
	}, nil
}

// End is idempotent. It also drops any queue entry the requester left behind.
func (s *Service) End(ctx context.Context, sessionID uuid.UUID, requesterID int64) (model.BlindSession, error) {
	if requesterID <= 0 || sessionID == uuid.Nil {
		return model.BlindSession{}, ErrValidation
	}

	session, err := s.load(ctx, sessionID, requesterID)
	if err != nil {
		return model.BlindSession{}, err
	}

	if session.Status.Live() {
		changed, err := s.sessions.MarkEnded(ctx, session.ID)
		if err != nil {
			return model.BlindSession{}, fmt.Errorf("end session: %w", err)
		}
		if changed {
			metrics.RecordSessionTransition(string(session.Status), string(enums.SessionStatusEnded))
		}
		session.Status = enums.SessionStatusEnded
	}

	if s.queue != nil {
		if _, err := s.queue.Remove(ctx, requesterID); err != nil {
			return model.BlindSession{}, fmt.Errorf("remove queue entry: %w", err)
		}
	}
	return session, nil
}

// ExpireOverdue ends every live session past its deadline in one sweep.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	if s.sessions == nil {
		return 0, ErrDependenciesNil
	}
	ended, err := s.sessions.ExpireOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire overdue sessions: %w", err)
	}

	var total int64
	for from, n := range ended {
		metrics.RecordSessionTransitions(string(from), string(enums.SessionStatusEnded), n)
		total += n
	}
	return total, nil
}

func (s *Service) load(ctx context.Context, sessionID uuid.UUID, userID int64) (model.BlindSession, error) {
	if s.sessions == nil {
		return model.BlindSession{}, ErrDependenciesNil
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return model.BlindSession{}, ErrNotFound
		}
		return model.BlindSession{}, fmt.Errorf("get session: %w", err)
	}
	if !session.HasParticipant(userID) {
		return model.BlindSession{}, ErrNotFound
	}
	return s.evaluate(ctx, session)
}

func (s *Service) evaluate(ctx context.Context, session model.BlindSession) (model.BlindSession, error) {
	eval := rules.EvaluateSession(session, s.now().UTC())
	if !eval.Expire {
		return session, nil
	}

	changed, err := s.sessions.MarkEnded(ctx, session.ID)
	if err != nil {
		return model.BlindSession{}, fmt.Errorf("expire session: %w", err)
	}
	if changed {
		metrics.RecordSessionTransition(string(session.Status), string(enums.SessionStatusEnded))
		s.logger.Debug("blind date expired", zap.String("session_id", session.ID.String()))
	}
	session.Status = eval.Status
	return session, nil
}
