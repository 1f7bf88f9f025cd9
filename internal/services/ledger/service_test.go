package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ivankudzin/blinddate/internal/domain/model"
	"github.com/ivankudzin/blinddate/internal/repo/memory"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRegenerateLikesAddsWholeHours(t *testing.T) {
	store := memory.NewStore(model.WalletDefaults{})
	seedWallet(store, model.Wallet{UserID: 1, Likes: 1, LastLikeRegenAt: testNow.Add(-3*time.Hour - 20*time.Minute)})

	svc := newTestService(store)
	wallet, err := svc.RegenerateLikes(context.Background(), 1)
	if err != nil {
		t.Fatalf("regenerate likes: %v", err)
	}
	if wallet.Likes != 4 {
		t.Fatalf("unexpected likes: got %d want 4", wallet.Likes)
	}
	if !wallet.LastLikeRegenAt.Equal(testNow) {
		t.Fatalf("unexpected anchor: got %s want %s", wallet.LastLikeRegenAt, testNow)
	}

	again, err := svc.RegenerateLikes(context.Background(), 1)
	if err != nil {
		t.Fatalf("second regenerate: %v", err)
	}
	if again.Likes != 4 {
		t.Fatalf("second regeneration must not add: got %d", again.Likes)
	}
}

func TestRegenerateLikesKeepsAnchorAtCap(t *testing.T) {
	store := memory.NewStore(model.WalletDefaults{})
	anchor := testNow.Add(-48 * time.Hour)
	seedWallet(store, model.Wallet{UserID: 1, Likes: 5, LastLikeRegenAt: anchor})

	wallet, err := newTestService(store).RegenerateLikes(context.Background(), 1)
	if err != nil {
		t.Fatalf("regenerate likes: %v", err)
	}
	if wallet.Likes != 5 || !wallet.LastLikeRegenAt.Equal(anchor) {
		t.Fatalf("unexpected wallet at cap: likes=%d anchor=%s", wallet.Likes, wallet.LastLikeRegenAt)
	}
}

func TestSpendLike(t *testing.T) {
	store := memory.NewStore(model.WalletDefaults{})
	seedWallet(store, model.Wallet{UserID: 1, Likes: 1, LastLikeRegenAt: testNow})
	svc := newTestService(store)

	wallet, err := svc.SpendLike(context.Background(), 1)
	if err != nil {
		t.Fatalf("spend like: %v", err)
	}
	if wallet.Likes != 0 {
		t.Fatalf("unexpected likes: got %d want 0", wallet.Likes)
	}

	if _, err := svc.SpendLike(context.Background(), 1); !errors.Is(err, ErrNoLikes) {
		t.Fatalf("unexpected error: got %v want %v", err, ErrNoLikes)
	}
}

func TestDebitCoins(t *testing.T) {
	tests := []struct {
		name      string
		coins     int64
		amount    int64
		wantErr   error
		wantCoins int64
	}{
		{name: "exact balance", coins: 100, amount: 100, wantCoins: 0},
		{name: "insufficient", coins: 99, amount: 100, wantErr: ErrInsufficientFunds, wantCoins: 99},
		{name: "invalid amount", coins: 10, amount: 0, wantErr: ErrValidation, wantCoins: 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore(model.WalletDefaults{})
			seedWallet(store, model.Wallet{UserID: 1, Coins: tc.coins, LastLikeRegenAt: testNow})

			_, err := newTestService(store).DebitCoins(context.Background(), 1, tc.amount)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("unexpected error: got %v want %v", err, tc.wantErr)
			}
			wallet, _ := store.GetWallet(context.Background(), 1)
			if wallet.Coins != tc.wantCoins {
				t.Fatalf("unexpected coins: got %d want %d", wallet.Coins, tc.wantCoins)
			}
		})
	}
}

func TestUnknownWallet(t *testing.T) {
	svc := newTestService(memory.NewStore(model.WalletDefaults{}))
	if _, err := svc.Snapshot(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected error: got %v want %v", err, ErrNotFound)
	}
}

func TestChargeAndReservePair(t *testing.T) {
	tests := []struct {
		name          string
		receiver      model.Wallet
		sender        model.Wallet
		wantErr       error
		wantParty     Party
		wantCoins     int64
		wantRecvChats int
		wantSendChats int
	}{
		{
			name:          "both parties reserve",
			receiver:      model.Wallet{UserID: 1, Coins: 150, ChatSlots: 2, ActiveChatCount: 1},
			sender:        model.Wallet{UserID: 2, ChatSlots: 1},
			wantCoins:     50,
			wantRecvChats: 2,
			wantSendChats: 1,
		},
		{
			name:          "receiver has no slots",
			receiver:      model.Wallet{UserID: 1, Coins: 150, ChatSlots: 2, ActiveChatCount: 2},
			sender:        model.Wallet{UserID: 2, ChatSlots: 1},
			wantErr:       ErrNoSlots,
			wantParty:     PartyReceiver,
			wantCoins:     150,
			wantRecvChats: 2,
		},
		{
			name:          "sender has no slots",
			receiver:      model.Wallet{UserID: 1, Coins: 150, ChatSlots: 2},
			sender:        model.Wallet{UserID: 2, ChatSlots: 1, ActiveChatCount: 1},
			wantErr:       ErrNoSlots,
			wantParty:     PartySender,
			wantCoins:     150,
			wantSendChats: 1,
		},
		{
			name:      "payer short of coins",
			receiver:  model.Wallet{UserID: 1, Coins: 99, ChatSlots: 2},
			sender:    model.Wallet{UserID: 2, ChatSlots: 1},
			wantErr:   ErrInsufficientFunds,
			wantCoins: 99,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore(model.WalletDefaults{})
			tc.receiver.LastLikeRegenAt = testNow
			tc.sender.LastLikeRegenAt = testNow
			seedWallet(store, tc.receiver)
			seedWallet(store, tc.sender)

			_, err := newTestService(store).ChargeAndReservePair(context.Background(), 1, 100, 1, 2)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("unexpected error: got %v want %v", err, tc.wantErr)
			}
			if tc.wantParty != "" {
				ns, ok := IsNoSlots(err)
				if !ok || ns.Party != tc.wantParty {
					t.Fatalf("unexpected no-slots party: got %+v want %s", ns, tc.wantParty)
				}
			}

			receiver, _ := store.GetWallet(context.Background(), 1)
			sender, _ := store.GetWallet(context.Background(), 2)
			if receiver.Coins != tc.wantCoins {
				t.Fatalf("unexpected receiver coins: got %d want %d", receiver.Coins, tc.wantCoins)
			}
			if receiver.ActiveChatCount != tc.wantRecvChats || sender.ActiveChatCount != tc.wantSendChats {
				t.Fatalf("unexpected chat counts: receiver=%d sender=%d", receiver.ActiveChatCount, sender.ActiveChatCount)
			}
		})
	}
}

func TestChargeAndReservePairCompensatesLostRace(t *testing.T) {
	store := memory.NewStore(model.WalletDefaults{})
	seedWallet(store, model.Wallet{UserID: 1, Coins: 100, ChatSlots: 1, LastLikeRegenAt: testNow})
	seedWallet(store, model.Wallet{UserID: 2, ChatSlots: 1, LastLikeRegenAt: testNow})

	racy := &racingStore{Store: store, stealSlotFrom: 2}
	svc := newTestService(racy)

	_, err := svc.ChargeAndReservePair(context.Background(), 1, 100, 1, 2)
	ns, ok := IsNoSlots(err)
	if !ok || ns.Party != PartySender {
		t.Fatalf("unexpected error: got %v want sender no-slots", err)
	}

	receiver, _ := store.GetWallet(context.Background(), 1)
	if receiver.Coins != 100 {
		t.Fatalf("coins were not refunded: got %d want 100", receiver.Coins)
	}
	if receiver.ActiveChatCount != 0 {
		t.Fatalf("receiver slot was not released: got %d", receiver.ActiveChatCount)
	}
}

func TestRollbackUndoesReservation(t *testing.T) {
	store := memory.NewStore(model.WalletDefaults{})
	seedWallet(store, model.Wallet{UserID: 1, Coins: 150, ChatSlots: 1, LastLikeRegenAt: testNow})
	seedWallet(store, model.Wallet{UserID: 2, ChatSlots: 1, LastLikeRegenAt: testNow})
	svc := newTestService(store)

	reservation, err := svc.ChargeAndReservePair(context.Background(), 1, 150, 1, 2)
	if err != nil {
		t.Fatalf("reserve pair: %v", err)
	}
	svc.Rollback(context.Background(), reservation)

	receiver, _ := store.GetWallet(context.Background(), 1)
	sender, _ := store.GetWallet(context.Background(), 2)
	if receiver.Coins != 150 || receiver.ActiveChatCount != 0 || sender.ActiveChatCount != 0 {
		t.Fatalf("rollback left state behind: receiver=%+v sender=%+v", receiver, sender)
	}
}

func TestBuyLikes(t *testing.T) {
	tests := []struct {
		name      string
		wallet    model.Wallet
		wantErr   error
		wantLikes int
		wantCoins int64
	}{
		{name: "refills to cap", wallet: model.Wallet{Coins: 150, Likes: 2}, wantLikes: 5, wantCoins: 50},
		{name: "already full", wallet: model.Wallet{Coins: 150, Likes: 5}, wantErr: ErrLikesFull, wantLikes: 5, wantCoins: 150},
		{name: "short of coins", wallet: model.Wallet{Coins: 99, Likes: 0}, wantErr: ErrInsufficientFunds, wantLikes: 0, wantCoins: 99},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore(model.WalletDefaults{})
			tc.wallet.UserID = 1
			tc.wallet.LastLikeRegenAt = testNow
			seedWallet(store, tc.wallet)

			_, err := newTestService(store).BuyLikes(context.Background(), 1)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("unexpected error: got %v want %v", err, tc.wantErr)
			}
			wallet, _ := store.GetWallet(context.Background(), 1)
			if wallet.Likes != tc.wantLikes || wallet.Coins != tc.wantCoins {
				t.Fatalf("unexpected wallet: likes=%d coins=%d", wallet.Likes, wallet.Coins)
			}
		})
	}
}

func TestBuyChatSlot(t *testing.T) {
	store := memory.NewStore(model.WalletDefaults{})
	seedWallet(store, model.Wallet{UserID: 1, Coins: 120, ChatSlots: 2, LastLikeRegenAt: testNow})
	svc := newTestService(store)

	wallet, err := svc.BuyChatSlot(context.Background(), 1)
	if err != nil {
		t.Fatalf("buy chat slot: %v", err)
	}
	if wallet.ChatSlots != 3 || wallet.Coins != 20 {
		t.Fatalf("unexpected wallet: slots=%d coins=%d", wallet.ChatSlots, wallet.Coins)
	}

	if _, err := svc.BuyChatSlot(context.Background(), 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("unexpected error: got %v want %v", err, ErrInsufficientFunds)
	}
}

func TestPurchaseAndGrantCoins(t *testing.T) {
	store := memory.NewStore(model.WalletDefaults{})
	seedWallet(store, model.Wallet{UserID: 1, LastLikeRegenAt: testNow})
	svc := newTestService(store)

	if _, _, err := svc.PurchaseCoins(context.Background(), 1, "gold"); !errors.Is(err, ErrUnknownPack) {
		t.Fatalf("unexpected error: got %v want %v", err, ErrUnknownPack)
	}

	wallet, amount, err := svc.PurchaseCoins(context.Background(), 1, "Medium")
	if err != nil {
		t.Fatalf("purchase coins: %v", err)
	}
	if amount != 550 || wallet.Coins != 550 {
		t.Fatalf("unexpected purchase: amount=%d coins=%d", amount, wallet.Coins)
	}

	wallet, err = svc.GrantCoins(context.Background(), 99, 1, 50)
	if err != nil {
		t.Fatalf("grant coins: %v", err)
	}
	if wallet.Coins != 600 {
		t.Fatalf("unexpected coins after grant: got %d want 600", wallet.Coins)
	}

	if _, err := svc.GrantCoins(context.Background(), 99, 1, -5); !errors.Is(err, ErrValidation) {
		t.Fatalf("unexpected error: got %v want %v", err, ErrValidation)
	}
}

func TestSnapshotNextLikeAt(t *testing.T) {
	store := memory.NewStore(model.WalletDefaults{})
	seedWallet(store, model.Wallet{UserID: 1, Likes: 3, LastLikeRegenAt: testNow.Add(-30 * time.Minute)})

	snapshot, err := newTestService(store).Snapshot(context.Background(), 1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.MaxLikes != 5 {
		t.Fatalf("unexpected max likes: got %d want 5", snapshot.MaxLikes)
	}
	want := testNow.Add(30 * time.Minute)
	if snapshot.NextLikeAt == nil || !snapshot.NextLikeAt.Equal(want) {
		t.Fatalf("unexpected next like at: got %v want %s", snapshot.NextLikeAt, want)
	}
}

type racingStore struct {
	*memory.Store
	stealSlotFrom int64
}

// ReserveChatSlot loses the race for one user as if another request took the last slot.
func (r *racingStore) ReserveChatSlot(ctx context.Context, userID int64) (model.Wallet, error) {
	if userID == r.stealSlotFrom {
		return model.Wallet{}, model.ErrConditionFailed
	}
	return r.Store.ReserveChatSlot(ctx, userID)
}

func newTestService(store WalletStore) *Service {
	svc := NewService(store, Config{}, nil)
	svc.now = func() time.Time { return testNow }
	return svc
}

func seedWallet(store *memory.Store, wallet model.Wallet) {
	store.PutUser(memory.UserSeed{
		Profile: model.PublicProfile{UserID: wallet.UserID},
		Wallet:  &wallet,
	})
}
