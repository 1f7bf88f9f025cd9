package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/blinddate/internal/domain/model"
	"github.com/ivankudzin/blinddate/internal/domain/rules"
	"github.com/ivankudzin/blinddate/internal/infra/metrics"
)

// WalletStore performs every balance change as a single conditional statement.
// Methods return model.ErrRecordNotFound for unknown users and
// model.ErrConditionFailed when the guard of the update does not hold.
type WalletStore interface {
	GetWallet(ctx context.Context, userID int64) (model.Wallet, error)
	ApplyLikeRegen(ctx context.Context, userID int64, expectedAnchor time.Time, add, maxLikes int, anchor time.Time) (model.Wallet, error)
	DebitCoins(ctx context.Context, userID, amount int64) (model.Wallet, error)
	CreditCoins(ctx context.Context, userID, amount int64) (model.Wallet, error)
	DebitLike(ctx context.Context, userID int64) (model.Wallet, error)
	CreditLike(ctx context.Context, userID int64, maxLikes int) (model.Wallet, error)
	ReserveChatSlot(ctx context.Context, userID int64) (model.Wallet, error)
	ReleaseChatSlot(ctx context.Context, userID int64) (model.Wallet, error)
	BuyLikes(ctx context.Context, userID, cost int64, pack, maxLikes int) (model.Wallet, error)
	BuyChatSlot(ctx context.Context, userID, cost int64) (model.Wallet, error)
}

type Config struct {
	MaxFreeLikes      int
	LikeRegenInterval time.Duration
	LikesPackCost     int64
	LikesPackSize     int
	ChatSlotCost      int64
	CoinPacks         map[string]int64
	MaxGrant          int64
}

func DefaultCoinPacks() map[string]int64 {
	return map[string]int64{
		"small":  100,
		"medium": 550,
		"large":  1200,
	}
}

type Snapshot struct {
	Wallet     model.Wallet
	MaxLikes   int
	NextLikeAt *time.Time
}

// Reservation records the steps of a completed ChargeAndReservePair so a
// caller can undo them if its own state change loses a race.
type Reservation struct {
	PayerID    int64
	Cost       int64
	ReceiverID int64
	SenderID   int64
}

type Service struct {
	store  WalletStore
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store WalletStore, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxFreeLikes <= 0 {
		cfg.MaxFreeLikes = rules.MaxFreeLikes
	}
	if cfg.LikeRegenInterval <= 0 {
		cfg.LikeRegenInterval = rules.LikeRegenInterval
	}
	if cfg.LikesPackCost <= 0 {
		cfg.LikesPackCost = rules.CostLikesPack
	}
	if cfg.LikesPackSize <= 0 {
		cfg.LikesPackSize = rules.LikesPackSize
	}
	if cfg.ChatSlotCost <= 0 {
		cfg.ChatSlotCost = rules.CostChatSlot
	}
	if len(cfg.CoinPacks) == 0 {
		cfg.CoinPacks = DefaultCoinPacks()
	}
	if cfg.MaxGrant <= 0 {
		cfg.MaxGrant = 100000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) MaxLikes() int {
	return s.cfg.MaxFreeLikes
}

// Wallet returns the balance after applying any pending like regeneration.
func (s *Service) Wallet(ctx context.Context, userID int64) (model.Wallet, error) {
	return s.RegenerateLikes(ctx, userID)
}

func (s *Service) RegenerateLikes(ctx context.Context, userID int64) (model.Wallet, error) {
	if userID <= 0 {
		return model.Wallet{}, ErrValidation
	}
	if s.store == nil {
		return model.Wallet{}, ErrDependenciesNil
	}

	wallet, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return model.Wallet{}, s.mapStoreError("read wallet", err)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	regen := rules.RegenerateLikes(wallet.Likes, wallet.LastLikeRegenAt, now, s.cfg.MaxFreeLikes, s.cfg.LikeRegenInterval)
	if !regen.Changed {
		return wallet, nil
	}

	updated, err := s.store.ApplyLikeRegen(ctx, userID, wallet.LastLikeRegenAt, regen.Added, s.cfg.MaxFreeLikes, regen.Anchor)
	if err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			// Someone else moved the anchor first; their result stands.
			latest, err := s.store.GetWallet(ctx, userID)
			if err != nil {
				return model.Wallet{}, s.mapStoreError("reread wallet", err)
			}
			return latest, nil
		}
		return model.Wallet{}, s.mapStoreError("apply like regeneration", err)
	}

	s.logger.Debug("likes regenerated",
		zap.Int64("user_id", userID),
		zap.Int("added", regen.Added),
		zap.Int("likes", updated.Likes),
	)
	metrics.RecordLedgerOperation("regen_likes", "ok")
	return updated, nil
}

func (s *Service) Snapshot(ctx context.Context, userID int64) (Snapshot, error) {
	wallet, err := s.RegenerateLikes(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Wallet:     wallet,
		MaxLikes:   s.cfg.MaxFreeLikes,
		NextLikeAt: rules.NextLikeAt(wallet.Likes, wallet.LastLikeRegenAt, s.cfg.MaxFreeLikes, s.cfg.LikeRegenInterval),
	}, nil
}

func (s *Service) DebitCoins(ctx context.Context, userID, amount int64) (model.Wallet, error) {
	if userID <= 0 || amount <= 0 {
		return model.Wallet{}, ErrValidation
	}
	if s.store == nil {
		return model.Wallet{}, ErrDependenciesNil
	}

	wallet, err := s.store.DebitCoins(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			metrics.RecordLedgerOperation("debit_coins", "insufficient")
			return model.Wallet{}, ErrInsufficientFunds
		}
		return model.Wallet{}, s.mapStoreError("debit coins", err)
	}
	metrics.RecordLedgerOperation("debit_coins", "ok")
	return wallet, nil
}

func (s *Service) CreditCoins(ctx context.Context, userID, amount int64) (model.Wallet, error) {
	if userID <= 0 || amount <= 0 {
		return model.Wallet{}, ErrValidation
	}
	if s.store == nil {
		return model.Wallet{}, ErrDependenciesNil
	}

	wallet, err := s.store.CreditCoins(ctx, userID, amount)
	if err != nil {
		return model.Wallet{}, s.mapStoreError("credit coins", err)
	}
	metrics.RecordLedgerOperation("credit_coins", "ok")
	return wallet, nil
}

// SpendLike regenerates first, then takes one like.
func (s *Service) SpendLike(ctx context.Context, userID int64) (model.Wallet, error) {
	wallet, err := s.RegenerateLikes(ctx, userID)
	if err != nil {
		return model.Wallet{}, err
	}
	if wallet.Likes < 1 {
		metrics.RecordLedgerOperation("debit_like", "empty")
		return model.Wallet{}, ErrNoLikes
	}

	wallet, err = s.store.DebitLike(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			metrics.RecordLedgerOperation("debit_like", "empty")
			return model.Wallet{}, ErrNoLikes
		}
		return model.Wallet{}, s.mapStoreError("debit like", err)
	}
	metrics.RecordLedgerOperation("debit_like", "ok")
	return wallet, nil
}

func (s *Service) RefundLike(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.store == nil {
		return ErrDependenciesNil
	}

	if _, err := s.store.CreditLike(ctx, userID, s.cfg.MaxFreeLikes); err != nil {
		return s.mapStoreError("refund like", err)
	}
	metrics.RecordCompensation("refund_like")
	return nil
}

func (s *Service) ReserveChatSlot(ctx context.Context, userID int64) (model.Wallet, error) {
	if userID <= 0 {
		return model.Wallet{}, ErrValidation
	}
	if s.store == nil {
		return model.Wallet{}, ErrDependenciesNil
	}

	wallet, err := s.store.ReserveChatSlot(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			return model.Wallet{}, ErrNoSlots
		}
		return model.Wallet{}, s.mapStoreError("reserve chat slot", err)
	}
	return wallet, nil
}

func (s *Service) ReleaseChatSlot(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.store == nil {
		return ErrDependenciesNil
	}

	if _, err := s.store.ReleaseChatSlot(ctx, userID); err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			return nil
		}
		return s.mapStoreError("release chat slot", err)
	}
	return nil
}

// ChargeAndReservePair debits payer and takes one chat slot from each party.
// Every precondition is checked before the first write; if a write still
// fails, the steps already taken are undone in reverse order.
func (s *Service) ChargeAndReservePair(ctx context.Context, payerID, cost, receiverID, senderID int64) (Reservation, error) {
	if payerID <= 0 || receiverID <= 0 || senderID <= 0 || cost <= 0 || receiverID == senderID {
		return Reservation{}, ErrValidation
	}
	if s.store == nil {
		return Reservation{}, ErrDependenciesNil
	}

	receiver, err := s.store.GetWallet(ctx, receiverID)
	if err != nil {
		return Reservation{}, s.mapStoreError("read receiver wallet", err)
	}
	sender, err := s.store.GetWallet(ctx, senderID)
	if err != nil {
		return Reservation{}, s.mapStoreError("read sender wallet", err)
	}
	payer := receiver
	if payerID == senderID {
		payer = sender
	} else if payerID != receiverID {
		payer, err = s.store.GetWallet(ctx, payerID)
		if err != nil {
			return Reservation{}, s.mapStoreError("read payer wallet", err)
		}
	}

	if receiver.FreeChatSlots() < 1 {
		return Reservation{}, NoSlotsError{Party: PartyReceiver, UserID: receiverID}
	}
	if sender.FreeChatSlots() < 1 {
		return Reservation{}, NoSlotsError{Party: PartySender, UserID: senderID}
	}
	if payer.Coins < cost {
		return Reservation{}, ErrInsufficientFunds
	}

	if _, err := s.DebitCoins(ctx, payerID, cost); err != nil {
		return Reservation{}, err
	}

	if _, err := s.ReserveChatSlot(ctx, receiverID); err != nil {
		s.refundCoins(ctx, payerID, cost)
		if errors.Is(err, ErrNoSlots) {
			return Reservation{}, NoSlotsError{Party: PartyReceiver, UserID: receiverID}
		}
		return Reservation{}, err
	}

	if _, err := s.ReserveChatSlot(ctx, senderID); err != nil {
		s.releaseSlot(ctx, receiverID)
		s.refundCoins(ctx, payerID, cost)
		if errors.Is(err, ErrNoSlots) {
			return Reservation{}, NoSlotsError{Party: PartySender, UserID: senderID}
		}
		return Reservation{}, err
	}

	metrics.RecordLedgerOperation("charge_reserve_pair", "ok")
	return Reservation{
		PayerID:    payerID,
		Cost:       cost,
		ReceiverID: receiverID,
		SenderID:   senderID,
	}, nil
}

// Rollback undoes a reservation in reverse order.
func (s *Service) Rollback(ctx context.Context, r Reservation) {
	if r.SenderID > 0 {
		s.releaseSlot(ctx, r.SenderID)
	}
	if r.ReceiverID > 0 {
		s.releaseSlot(ctx, r.ReceiverID)
	}
	if r.PayerID > 0 && r.Cost > 0 {
		s.refundCoins(ctx, r.PayerID, r.Cost)
	}
}

// Refund returns coins taken by a paid transition that did not go through.
func (s *Service) Refund(ctx context.Context, userID, amount int64) {
	s.refundCoins(ctx, userID, amount)
}

func (s *Service) BuyLikes(ctx context.Context, userID int64) (model.Wallet, error) {
	wallet, err := s.RegenerateLikes(ctx, userID)
	if err != nil {
		return model.Wallet{}, err
	}
	if wallet.Likes >= s.cfg.MaxFreeLikes {
		return model.Wallet{}, ErrLikesFull
	}
	if wallet.Coins < s.cfg.LikesPackCost {
		return model.Wallet{}, ErrInsufficientFunds
	}

	updated, err := s.store.BuyLikes(ctx, userID, s.cfg.LikesPackCost, s.cfg.LikesPackSize, s.cfg.MaxFreeLikes)
	if err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			return model.Wallet{}, s.classifyPurchaseMiss(ctx, userID, s.cfg.LikesPackCost, true)
		}
		return model.Wallet{}, s.mapStoreError("buy likes", err)
	}
	metrics.RecordLedgerOperation("buy_likes", "ok")
	return updated, nil
}

func (s *Service) BuyChatSlot(ctx context.Context, userID int64) (model.Wallet, error) {
	if userID <= 0 {
		return model.Wallet{}, ErrValidation
	}
	if s.store == nil {
		return model.Wallet{}, ErrDependenciesNil
	}

	wallet, err := s.store.BuyChatSlot(ctx, userID, s.cfg.ChatSlotCost)
	if err != nil {
		if errors.Is(err, model.ErrConditionFailed) {
			return model.Wallet{}, s.classifyPurchaseMiss(ctx, userID, s.cfg.ChatSlotCost, false)
		}
		return model.Wallet{}, s.mapStoreError("buy chat slot", err)
	}
	metrics.RecordLedgerOperation("buy_chat_slot", "ok")
	return wallet, nil
}

// PurchaseCoins credits a configured pack. There is no payment gateway behind it.
func (s *Service) PurchaseCoins(ctx context.Context, userID int64, pack string) (model.Wallet, int64, error) {
	amount, ok := s.cfg.CoinPacks[strings.ToLower(strings.TrimSpace(pack))]
	if !ok || amount <= 0 {
		return model.Wallet{}, 0, ErrUnknownPack
	}

	wallet, err := s.CreditCoins(ctx, userID, amount)
	if err != nil {
		return model.Wallet{}, 0, err
	}
	s.logger.Info("coin pack credited",
		zap.Int64("user_id", userID),
		zap.String("pack", pack),
		zap.Int64("amount", amount),
	)
	return wallet, amount, nil
}

func (s *Service) GrantCoins(ctx context.Context, actorID, userID, amount int64) (model.Wallet, error) {
	if actorID <= 0 || amount <= 0 || amount > s.cfg.MaxGrant {
		return model.Wallet{}, ErrValidation
	}

	wallet, err := s.CreditCoins(ctx, userID, amount)
	if err != nil {
		return model.Wallet{}, err
	}
	s.logger.Info("coins granted",
		zap.Int64("actor_id", actorID),
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount),
	)
	return wallet, nil
}

func (s *Service) classifyPurchaseMiss(ctx context.Context, userID, cost int64, likesPack bool) error {
	wallet, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return s.mapStoreError("reread wallet", err)
	}
	if likesPack && wallet.Likes >= s.cfg.MaxFreeLikes {
		return ErrLikesFull
	}
	if wallet.Coins < cost {
		return ErrInsufficientFunds
	}
	return fmt.Errorf("purchase lost a concurrent update: %w", model.ErrConditionFailed)
}

func (s *Service) refundCoins(ctx context.Context, userID, amount int64) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.store.CreditCoins(ctx, userID, amount); err != nil {
		s.logger.Error("coin refund failed",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.Int64("amount", amount),
		)
		return
	}
	metrics.RecordCompensation("refund_coins")
}

func (s *Service) releaseSlot(ctx context.Context, userID int64) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.store.ReleaseChatSlot(ctx, userID); err != nil && !errors.Is(err, model.ErrConditionFailed) {
		s.logger.Error("chat slot release failed",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		return
	}
	metrics.RecordCompensation("release_slot")
}

func (s *Service) mapStoreError(op string, err error) error {
	if errors.Is(err, model.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
