package likes

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
	"github.com/ivankudzin/blinddate/internal/services/ledger"
)

func TestConcurrentDirectChatOnSameLike(t *testing.T) {
	store, svc := newTestService()
	seedUser(store, alice, model.Wallet{Likes: 5, ChatSlots: 10})
	seedUser(store, bob, model.Wallet{Coins: 2000, ChatSlots: 10})
	ctx := context.Background()

	sent := mustSend(t, svc, alice, bob)

	const devices = 8
	errs := runConcurrently(devices, func(int) error {
		_, err := svc.DirectChat(ctx, bob, sent.ID)
		return err
	})

	opened := 0
	for _, err := range errs {
		switch {
		case err == nil:
			opened++
		case errors.Is(err, ErrInvalidTransition):
		default:
			t.Fatalf("unexpected direct chat error: %v", err)
		}
	}
	if opened != 1 {
		t.Fatalf("unexpected opened chats: got %d want 1", opened)
	}

	receiver, _ := store.GetWallet(ctx, bob)
	sender, _ := store.GetWallet(ctx, alice)
	if receiver.Coins != 1850 {
		t.Fatalf("only one charge may stick: got %d want 1850", receiver.Coins)
	}
	if receiver.ActiveChatCount != 1 || sender.ActiveChatCount != 1 {
		t.Fatalf("unexpected chat counts: receiver=%d sender=%d", receiver.ActiveChatCount, sender.ActiveChatCount)
	}
}

func TestConcurrentChatsRaceForLastCoins(t *testing.T) {
	store, svc := newTestService()
	seedUser(store, alice, model.Wallet{Likes: 5, ChatSlots: 1})
	seedUser(store, carol, model.Wallet{Likes: 5, ChatSlots: 1})
	seedUser(store, bob, model.Wallet{Coins: 150, ChatSlots: 2})
	ctx := context.Background()

	likeIDs := []uuid.UUID{
		mustSend(t, svc, alice, bob).ID,
		mustSend(t, svc, carol, bob).ID,
	}

	errs := runConcurrently(len(likeIDs), func(i int) error {
		_, err := svc.DirectChat(ctx, bob, likeIDs[i])
		return err
	})

	opened := 0
	for _, err := range errs {
		switch {
		case err == nil:
			opened++
		case errors.Is(err, ledger.ErrInsufficientFunds):
		default:
			t.Fatalf("unexpected direct chat error: %v", err)
		}
	}
	if opened != 1 {
		t.Fatalf("unexpected opened chats: got %d want 1", opened)
	}

	receiver, _ := store.GetWallet(ctx, bob)
	if receiver.Coins != 0 || receiver.ActiveChatCount != 1 {
		t.Fatalf("unexpected receiver wallet: %+v", receiver)
	}

	pending := 0
	for _, id := range likeIDs {
		like, _ := store.GetLike(ctx, id)
		if like.Status == enums.LikeStatusPending {
			pending++
		}
	}
	if pending != 1 {
		t.Fatalf("the losing like must stay pending, got %d pending", pending)
	}
}

func TestConcurrentLikesSpendEachLikeOnce(t *testing.T) {
	store, svc := newTestService()
	seedUser(store, alice, model.Wallet{Likes: 2})

	const receivers = 6
	for i := 0; i < receivers; i++ {
		seedUser(store, int64(10+i), model.Wallet{})
	}

	errs := runConcurrently(receivers, func(i int) error {
		_, err := svc.SendLike(context.Background(), alice, int64(10+i))
		return err
	})

	sent := 0
	for _, err := range errs {
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ledger.ErrNoLikes):
		default:
			t.Fatalf("unexpected send error: %v", err)
		}
	}
	if sent != 2 {
		t.Fatalf("unexpected sent likes: got %d want 2", sent)
	}

	wallet, _ := store.GetWallet(context.Background(), alice)
	if wallet.Likes != 0 {
		t.Fatalf("unexpected likes left: got %d want 0", wallet.Likes)
	}
}

func runConcurrently(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fn(i)
		}(i)
	}
	wg.Wait()
	return errs
}
