package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ivankudzin/blinddate/internal/domain/model"
	"github.com/ivankudzin/blinddate/internal/repo/memory"
)

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	store := memory.NewStore(model.WalletDefaults{})
	seedWallet(store, model.Wallet{UserID: 1, Coins: 100, LastLikeRegenAt: testNow})
	svc := newTestService(store)

	const attempts = 20
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DebitCoins(context.Background(), 1, 30)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientFunds):
		default:
			t.Fatalf("unexpected debit error: %v", err)
		}
	}
	if succeeded != 3 {
		t.Fatalf("unexpected successful debits: got %d want 3", succeeded)
	}

	wallet, _ := store.GetWallet(context.Background(), 1)
	if wallet.Coins != 10 {
		t.Fatalf("unexpected balance: got %d want 10", wallet.Coins)
	}
}

func TestConcurrentPairReservationsRespectSlots(t *testing.T) {
	store := memory.NewStore(model.WalletDefaults{})
	seedWallet(store, model.Wallet{UserID: 1, Coins: 1000, ChatSlots: 2, LastLikeRegenAt: testNow})

	const senders = 10
	for id := int64(2); id < 2+senders; id++ {
		seedWallet(store, model.Wallet{UserID: id, ChatSlots: 1, LastLikeRegenAt: testNow})
	}
	svc := newTestService(store)

	errs := make(chan error, senders)
	var wg sync.WaitGroup
	for id := int64(2); id < 2+senders; id++ {
		wg.Add(1)
		go func(senderID int64) {
			defer wg.Done()
			_, err := svc.ChargeAndReservePair(context.Background(), 1, 100, 1, senderID)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	reserved := 0
	for err := range errs {
		switch {
		case err == nil:
			reserved++
		case errors.Is(err, ErrNoSlots):
		default:
			t.Fatalf("unexpected reservation error: %v", err)
		}
	}
	if reserved != 2 {
		t.Fatalf("unexpected reservations: got %d want 2", reserved)
	}

	receiver, _ := store.GetWallet(context.Background(), 1)
	if receiver.ActiveChatCount != receiver.ChatSlots {
		t.Fatalf("receiver chats out of bounds: active=%d slots=%d", receiver.ActiveChatCount, receiver.ChatSlots)
	}
	if receiver.Coins != 800 {
		t.Fatalf("losers must be refunded: got %d want 800", receiver.Coins)
	}

	held := 0
	for id := int64(2); id < 2+senders; id++ {
		sender, _ := store.GetWallet(context.Background(), id)
		if sender.ActiveChatCount > sender.ChatSlots {
			t.Fatalf("sender %d over its slots: %+v", id, sender)
		}
		held += sender.ActiveChatCount
	}
	if held != reserved {
		t.Fatalf("sender slots out of sync: held=%d reserved=%d", held, reserved)
	}
}
