package likes

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
	"github.com/ivankudzin/blinddate/internal/services/ledger"
	ratesvc "github.com/ivankudzin/blinddate/internal/services/rate"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("like not found")
	ErrAlreadyLiked      = errors.New("already liked")
	ErrInvalidTransition = errors.New("invalid like transition")
	ErrDependenciesNil   = errors.New("likes dependencies are not configured")
)

type LikeStore interface {
	// Create returns model.ErrDuplicate when the (sender, receiver) pair exists.
	Create(ctx context.Context, like model.Like) error
	Exists(ctx context.Context, senderID, receiverID int64) (bool, error)
	GetLike(ctx context.Context, id uuid.UUID) (model.Like, error)
	// Transition moves the like to `to` only if its status is still `from`,
	// stamping revealed_at / chat_started_at once. Otherwise model.ErrConditionFailed.
	Transition(ctx context.Context, id uuid.UUID, from, to enums.LikeStatus, at time.Time) (model.Like, error)
	ListIncoming(ctx context.Context, receiverID int64, limit int) ([]model.IncomingLike, error)
	ListOutgoing(ctx context.Context, senderID int64, limit int) ([]model.Like, error)
}

type ProfileReader interface {
	GetPublicProfile(ctx context.Context, userID int64) (model.PublicProfile, error)
}

type Ledger interface {
	Wallet(ctx context.Context, userID int64) (model.Wallet, error)
	SpendLike(ctx context.Context, userID int64) (model.Wallet, error)
	RefundLike(ctx context.Context, userID int64) error
	DebitCoins(ctx context.Context, userID, amount int64) (model.Wallet, error)
	Refund(ctx context.Context, userID, amount int64)
	ChargeAndReservePair(ctx context.Context, payerID, cost, receiverID, senderID int64) (ledger.Reservation, error)
	Rollback(ctx context.Context, r ledger.Reservation)
}

type RateLimiter interface {
	Check(ctx context.Context, action ratesvc.Action, userID int64) error
}

type Config struct {
	RevealCost     int64
	StartChatCost  int64
	DirectChatCost int64
	ListLimit      int
}

type Service struct {
	store    LikeStore
	profiles ProfileReader
	ledger   Ledger
	limiter  RateLimiter
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	newID    func() uuid.UUID
}

type SendResult struct {
	Like      model.Like
	LikesLeft int
}

// IncomingItem hides the sender until the like is revealed or chatting.
type IncomingItem struct {
	Like    model.Like
	Blurred bool
	Sender  *model.PublicProfile
}

type TransitionResult struct {
	Like      model.Like
	Sender    *model.PublicProfile
	CoinsLeft int64
}

func NewService(store LikeStore, profiles ProfileReader, wallet Ledger, cfg Config, logger *zap.Logger) *Service {
	if cfg.RevealCost <= 0 {
		cfg.RevealCost = rules.CostReveal
	}
	if cfg.StartChatCost <= 0 {
		cfg.StartChatCost = rules.CostStartChat
	}
	if cfg.DirectChatCost <= 0 {
		cfg.DirectChatCost = rules.CostDirectChat
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:    store,
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

func (s *Service) SendLike(ctx context.Context, senderID, receiverID int64) (SendResult, error) {
	if senderID <= 0 || receiverID <= 0 || senderID == receiverID {
		return SendResult{}, ErrValidation
	}
	if err := s.ready(); err != nil {
		return SendResult{}, err
	}
	if s.limiter != nil {
		if err := s.limiter.Check(ctx, ratesvc.ActionLike, senderID); err != nil {
			return SendResult{}, err
		}
	}

	if _, err := s.profiles.GetPublicProfile(ctx, receiverID); err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return SendResult{}, ErrNotFound
		}
		return SendResult{}, fmt.Errorf("get receiver profile: %w", err)
	}

	exists, err := s.store.Exists(ctx, senderID, receiverID)
	if err != nil {
		return SendResult{}, fmt.Errorf("check existing like: %w", err)
	}
	if exists {
		return SendResult{}, ErrAlreadyLiked
	}

	wallet, err := s.ledger.SpendLike(ctx, senderID)
	if err != nil {
		return SendResult{}, err
	}

	like := model.Like{
		ID:         s.newID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     enums.LikeStatusPending,
		CreatedAt:  s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.Create(ctx, like); err != nil {
		if refundErr := s.ledger.RefundLike(context.WithoutCancel(ctx), senderID); refundErr != nil {
			s.logger.Error("like refund failed", zap.Error(refundErr), zap.Int64("user_id", senderID))
		}
		if errors.Is(err, model.ErrDuplicate) {
			return SendResult{}, ErrAlreadyLiked
		}
		return SendResult{}, fmt.Errorf("create like: %w", err)
	}

	metrics.RecordLikeTransition(string(enums.LikeStatusPending))
	return SendResult{Like: like, LikesLeft: wallet.Likes}, nil
}

func (s *Service) Incoming(ctx context.Context, receiverID int64) ([]IncomingItem, error) {
	if receiverID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, ErrDependenciesNil
	}

	records, err := s.store.ListIncoming(ctx, receiverID, s.cfg.ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list incoming likes: %w", err)
	}

	items := make([]IncomingItem, 0, len(records))
	for _, record := range records {
		item := IncomingItem{Like: record.Like, Blurred: !record.Like.Status.Identified()}
		if item.Blurred {
			item.Like.SenderID = 0
		} else {
			sender := record.Sender
			item.Sender = &sender
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) Outgoing(ctx context.Context, senderID int64) ([]model.Like, error) {
	if senderID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, ErrDependenciesNil
	}

	items, err := s.store.ListOutgoing(ctx, senderID, s.cfg.ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list outgoing likes: %w", err)
	}
	return items, nil
}

func (s *Service) Reveal(ctx context.Context, receiverID int64, likeID uuid.UUID) (TransitionResult, error) {
	like, err := s.loadForReceiver(ctx, receiverID, likeID)
	if err != nil {
		return TransitionResult{}, err
	}
	if like.Status != enums.LikeStatusPending {
		return TransitionResult{}, ErrInvalidTransition
	}

	sender, err := s.profiles.GetPublicProfile(ctx, like.SenderID)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("get sender profile: %w", err)
	}

	wallet, err := s.ledger.Wallet(ctx, receiverID)
	if err != nil {
		return TransitionResult{}, err
	}
	if wallet.Coins < s.cfg.RevealCost {
		return TransitionResult{}, ledger.ErrInsufficientFunds
	}

	wallet, err = s.ledger.DebitCoins(ctx, receiverID, s.cfg.RevealCost)
	if err != nil {
		return TransitionResult{}, err
	}

	updated, err := s.store.Transition(ctx, like.ID, enums.LikeStatusPending, enums.LikeStatusRevealed, s.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		s.ledger.Refund(ctx, receiverID, s.cfg.RevealCost)
		return TransitionResult{}, s.mapTransitionError(err)
	}

	metrics.RecordLikeTransition(string(enums.LikeStatusRevealed))
	return TransitionResult{Like: updated, Sender: &sender, CoinsLeft: wallet.Coins}, nil
}

func (s *Service) StartChat(ctx context.Context, receiverID int64, likeID uuid.UUID) (TransitionResult, error) {
	return s.openChat(ctx, receiverID, likeID, enums.LikeStatusRevealed, s.cfg.StartChatCost)
}

// DirectChat is reveal plus start-chat in one step at its own price.
func (s *Service) DirectChat(ctx context.Context, receiverID int64, likeID uuid.UUID) (TransitionResult, error) {
	return s.openChat(ctx, receiverID, likeID, enums.LikeStatusPending, s.cfg.DirectChatCost)
}

func (s *Service) Decline(ctx context.Context, receiverID int64, likeID uuid.UUID) (model.Like, error) {
	like, err := s.loadForReceiver(ctx, receiverID, likeID)
	if err != nil {
		return model.Like{}, err
	}

	switch like.Status {
	case enums.LikeStatusDeclined:
		return like, nil
	case enums.LikeStatusChatting:
		return model.Like{}, ErrInvalidTransition
	}

	updated, err := s.store.Transition(ctx, like.ID, like.Status, enums.LikeStatusDeclined, s.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return model.Like{}, s.mapTransitionError(err)
	}

	metrics.RecordLikeTransition(string(enums.LikeStatusDeclined))
	return updated, nil
}

func (s *Service) openChat(ctx context.Context, receiverID int64, likeID uuid.UUID, from enums.LikeStatus, cost int64) (TransitionResult, error) {
	like, err := s.loadForReceiver(ctx, receiverID, likeID)
	if err != nil {
		return TransitionResult{}, err
	}
	if like.Status != from {
		return TransitionResult{}, ErrInvalidTransition
	}

	sender, err := s.profiles.GetPublicProfile(ctx, like.SenderID)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("get sender profile: %w", err)
	}

	reservation, err := s.ledger.ChargeAndReservePair(ctx, receiverID, cost, receiverID, like.SenderID)
	if err != nil {
		return TransitionResult{}, err
	}

	updated, err := s.store.Transition(ctx, like.ID, from, enums.LikeStatusChatting, s.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		s.ledger.Rollback(ctx, reservation)
		return TransitionResult{}, s.mapTransitionError(err)
	}

	metrics.RecordLikeTransition(string(enums.LikeStatusChatting))
	s.logger.Info("like chat opened",
		zap.String("like_id", like.ID.String()),
		zap.Int64("receiver_id", receiverID),
		zap.Int64("sender_id", like.SenderID),
		zap.String("from", string(from)),
	)

	result := TransitionResult{Like: updated, Sender: &sender}
	if wallet, err := s.ledger.Wallet(ctx, receiverID); err == nil {
		result.CoinsLeft = wallet.Coins
	}
	return result, nil
}

func (s *Service) loadForReceiver(ctx context.Context, receiverID int64, likeID uuid.UUID) (model.Like, error) {
	if receiverID <= 0 || likeID == uuid.Nil {
		return model.Like{}, ErrValidation
	}
	if err := s.ready(); err != nil {
		return model.Like{}, err
	}

	like, err := s.store.GetLike(ctx, likeID)
	if err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return model.Like{}, ErrNotFound
		}
		return model.Like{}, fmt.Errorf("get like: %w", err)
	}
	if like.ReceiverID != receiverID {
		return model.Like{}, ErrNotFound
	}
	return like, nil
}

func (s *Service) mapTransitionError(err error) error {
	switch {
	case errors.Is(err, model.ErrConditionFailed):
		return ErrInvalidTransition
	case errors.Is(err, model.ErrRecordNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("transition like: %w", err)
	}
}

func (s *Service) ready() error {
	if s.store == nil || s.profiles == nil || s.ledger == nil {
		return ErrDependenciesNil
	}
	return nil
}
