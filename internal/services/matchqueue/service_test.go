package matchqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
	"github.com/ivankudzin/blinddate/internal/repo/memory"
	"github.com/ivankudzin/blinddate/internal/services/blinddate"
)

// Sessions are evaluated by the blind date service against the wall clock.
var testNow = time.Now().UTC().Truncate(time.Microsecond)

func TestJoinMatchesCompatibleWaitingUser(t *testing.T) {
	store := newTestStore()
	addUser(store, 1, enums.GenderWoman, enums.LookingForMen, true)
	addUser(store, 2, enums.GenderMan, enums.LookingForWomen, true)
	svc := newTestService(store, store)
	ctx := context.Background()

	first, err := svc.Join(ctx, 1)
	if err != nil {
		t.Fatalf("join first: %v", err)
	}
	if first.Status != JoinSearching {
		t.Fatalf("unexpected first status: got %s want %s", first.Status, JoinSearching)
	}

	svc.now = func() time.Time { return testNow.Add(time.Minute) }
	second, err := svc.Join(ctx, 2)
	if err != nil {
		t.Fatalf("join second: %v", err)
	}
	if second.Status != JoinMatched || second.Session == nil {
		t.Fatalf("expected match, got %+v", second)
	}

	session := second.Session
	if session.User1ID != 1 || session.User2ID != 2 {
		t.Fatalf("unexpected participants: %d, %d", session.User1ID, session.User2ID)
	}
	if session.Status != enums.SessionStatusActive {
		t.Fatalf("unexpected session status: %s", session.Status)
	}
	if want := testNow.Add(6 * time.Minute); !session.ExpiresAt.Equal(want) {
		t.Fatalf("unexpected expires_at: got %s want %s", session.ExpiresAt, want)
	}

	for _, userID := range []int64{1, 2} {
		if _, err := store.GetEntry(ctx, userID); !errors.Is(err, model.ErrRecordNotFound) {
			t.Fatalf("queue entry of %d must be gone after match, got %v", userID, err)
		}
	}
}

func TestJoinTwiceIsIdempotent(t *testing.T) {
	store := newTestStore()
	addUser(store, 1, enums.GenderWoman, enums.LookingForMen, true)
	svc := newTestService(store, store)
	ctx := context.Background()

	first, err := svc.Join(ctx, 1)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	svc.now = func() time.Time { return testNow.Add(2 * time.Minute) }
	second, err := svc.Join(ctx, 1)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.Status != JoinAlreadySearching {
		t.Fatalf("unexpected status: got %s want %s", second.Status, JoinAlreadySearching)
	}
	if !second.JoinedAt.Equal(first.JoinedAt) {
		t.Fatalf("joined_at must not move: got %s want %s", second.JoinedAt, first.JoinedAt)
	}
}

func TestJoinSkipsExpiredEntries(t *testing.T) {
	store := newTestStore()
	addUser(store, 1, enums.GenderWoman, enums.LookingForMen, true)
	addUser(store, 2, enums.GenderMan, enums.LookingForWomen, true)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, model.QueueEntry{
		UserID:     1,
		Gender:     enums.GenderWoman,
		LookingFor: enums.LookingForMen,
		JoinedAt:   testNow.Add(-11 * time.Minute),
	}); err != nil {
		t.Fatalf("seed queue: %v", err)
	}

	result, err := newTestService(store, store).Join(ctx, 2)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Status != JoinSearching {
		t.Fatalf("expired entry must not be matched, got %s", result.Status)
	}
}

func TestJoinRequiresMutualPreference(t *testing.T) {
	tests := []struct {
		name        string
		waiting     [2]string
		joining     [2]string
		wantMatched bool
	}{
		{name: "mutual", waiting: [2]string{"Woman", "Men"}, joining: [2]string{"Man", "Women"}, wantMatched: true},
		{name: "everyone accepts non-binary", waiting: [2]string{"Non-binary", "Everyone"}, joining: [2]string{"Woman", "Everyone"}, wantMatched: true},
		{name: "waiting wants women", waiting: [2]string{"Woman", "Women"}, joining: [2]string{"Man", "Women"}},
		{name: "joining wants men", waiting: [2]string{"Woman", "Everyone"}, joining: [2]string{"Man", "Men"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore()
			addUser(store, 1, enums.Gender(tc.waiting[0]), enums.LookingFor(tc.waiting[1]), true)
			addUser(store, 2, enums.Gender(tc.joining[0]), enums.LookingFor(tc.joining[1]), true)
			svc := newTestService(store, store)
			ctx := context.Background()

			if _, err := svc.Join(ctx, 1); err != nil {
				t.Fatalf("join waiting: %v", err)
			}
			result, err := svc.Join(ctx, 2)
			if err != nil {
				t.Fatalf("join second: %v", err)
			}
			if matched := result.Status == JoinMatched; matched != tc.wantMatched {
				t.Fatalf("unexpected match outcome: got %s", result.Status)
			}
		})
	}
}

func TestJoinLostClaimFallsBackToQueue(t *testing.T) {
	store := newTestStore()
	addUser(store, 1, enums.GenderWoman, enums.LookingForMen, true)
	addUser(store, 2, enums.GenderMan, enums.LookingForWomen, true)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, model.QueueEntry{UserID: 1, Gender: enums.GenderWoman, LookingFor: enums.LookingForMen, JoinedAt: testNow}); err != nil {
		t.Fatalf("seed queue: %v", err)
	}

	result, err := newTestService(store, &losingQueue{Store: store}).Join(ctx, 2)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Status != JoinSearching {
		t.Fatalf("unexpected status after lost claim: got %s want %s", result.Status, JoinSearching)
	}
	if _, err := store.GetEntry(ctx, 2); err != nil {
		t.Fatalf("requester must be queued: %v", err)
	}
}

func TestJoinPreconditions(t *testing.T) {
	store := newTestStore()
	addUser(store, 1, enums.GenderWoman, enums.LookingForMen, false)
	addUser(store, 2, enums.GenderMan, enums.LookingForWomen, true)
	addUser(store, 3, enums.GenderWoman, enums.LookingForMen, true)
	svc := newTestService(store, store)
	ctx := context.Background()

	if _, err := svc.Join(ctx, 1); !errors.Is(err, ErrProfileIncomplete) {
		t.Fatalf("unexpected error: got %v want %v", err, ErrProfileIncomplete)
	}
	if _, err := svc.Join(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected error: got %v want %v", err, ErrNotFound)
	}

	if _, err := svc.Join(ctx, 3); err != nil {
		t.Fatalf("join 3: %v", err)
	}
	if _, err := svc.Join(ctx, 2); err != nil {
		t.Fatalf("join 2: %v", err)
	}
	if _, err := svc.Join(ctx, 2); !errors.Is(err, ErrAlreadyInSession) {
		t.Fatalf("unexpected error: got %v want %v", err, ErrAlreadyInSession)
	}
}

func TestStatusAndLeave(t *testing.T) {
	store := newTestStore()
	addUser(store, 1, enums.GenderWoman, enums.LookingForMen, true)
	svc := newTestService(store, store)
	ctx := context.Background()

	status, err := svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != StateIdle {
		t.Fatalf("unexpected state: got %s want %s", status.State, StateIdle)
	}

	if _, err := svc.Join(ctx, 1); err != nil {
		t.Fatalf("join: %v", err)
	}
	status, err = svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != StateSearching || status.ExpiresAt == nil || !status.ExpiresAt.Equal(testNow.Add(10*time.Minute)) {
		t.Fatalf("unexpected searching status: %+v", status)
	}

	svc.now = func() time.Time { return testNow.Add(11 * time.Minute) }
	status, err = svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status after ttl: %v", err)
	}
	if status.State != StateIdle {
		t.Fatalf("expired entry must report idle, got %s", status.State)
	}

	for i := 0; i < 2; i++ {
		if err := svc.Leave(ctx, 1); err != nil {
			t.Fatalf("leave #%d: %v", i+1, err)
		}
	}
}

func TestPurgeExpired(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	_, _ = store.Enqueue(ctx, model.QueueEntry{UserID: 1, JoinedAt: testNow.Add(-20 * time.Minute)})
	_, _ = store.Enqueue(ctx, model.QueueEntry{UserID: 2, JoinedAt: testNow.Add(-time.Minute)})

	purged, err := newTestService(store, store).PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("unexpected purged count: got %d want 1", purged)
	}
}

func TestJoinFindsCompatibleEntryBehindRejectingOnes(t *testing.T) {
	store := newTestStore()
	addUser(store, 200, enums.GenderMan, enums.LookingForEveryone, true)
	ctx := context.Background()

	for id := int64(1); id <= 50; id++ {
		if _, err := store.Enqueue(ctx, model.QueueEntry{
			UserID:     id,
			Gender:     enums.GenderMan,
			LookingFor: enums.LookingForWomen,
			JoinedAt:   testNow.Add(-time.Duration(120-id) * time.Second),
		}); err != nil {
			t.Fatalf("seed queue entry %d: %v", id, err)
		}
	}
	if _, err := store.Enqueue(ctx, model.QueueEntry{
		UserID:     100,
		Gender:     enums.GenderNonBinary,
		LookingFor: enums.LookingForEveryone,
		JoinedAt:   testNow.Add(-5 * time.Second),
	}); err != nil {
		t.Fatalf("seed compatible entry: %v", err)
	}

	result, err := newTestService(store, store).Join(ctx, 200)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Status != JoinMatched || result.Session == nil {
		t.Fatalf("expected a match with the compatible entry, got %s", result.Status)
	}
	if result.Session.User1ID != 100 {
		t.Fatalf("unexpected partner: got %d want 100", result.Session.User1ID)
	}
}

func TestJoinDropsEntryWhenClaimedMidway(t *testing.T) {
	store := newTestStore()
	addUser(store, 1, enums.GenderWoman, enums.LookingForMen, true)
	ctx := context.Background()

	claimed := model.BlindSession{
		ID:        uuid.New(),
		User1ID:   1,
		User2ID:   2,
		Status:    enums.SessionStatusActive,
		StartTime: testNow,
		ExpiresAt: testNow.Add(5 * time.Minute),
	}
	lookup := &claimedMidJoin{session: claimed}
	svc := NewService(store, store, lookup, Config{}, nil)
	svc.now = func() time.Time { return testNow }

	result, err := svc.Join(ctx, 1)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Status != JoinMatched || result.Session == nil || result.Session.ID != claimed.ID {
		t.Fatalf("expected the claimed session, got %+v", result)
	}
	if _, err := store.GetEntry(ctx, 1); !errors.Is(err, model.ErrRecordNotFound) {
		t.Fatalf("queue entry must not outlive the claim, got %v", err)
	}
}

func TestConcurrentJoinsKeepOneLiveSessionPerUser(t *testing.T) {
	store := newTestStore()
	const users = 40
	for id := int64(1); id <= users; id++ {
		if id%2 == 0 {
			addUser(store, id, enums.GenderMan, enums.LookingForWomen, true)
		} else {
			addUser(store, id, enums.GenderWoman, enums.LookingForMen, true)
		}
	}
	svc := newTestService(store, store)
	ctx := context.Background()

	for round := 0; round < 3; round++ {
		errs := make(chan error, users)
		var wg sync.WaitGroup
		for id := int64(1); id <= users; id++ {
			wg.Add(1)
			go func(userID int64) {
				defer wg.Done()
				if _, err := svc.Join(ctx, userID); err != nil && !errors.Is(err, ErrAlreadyInSession) {
					errs <- fmt.Errorf("user %d: %w", userID, err)
				}
			}(id)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("round %d join: %v", round, err)
		}
	}

	for id := int64(1); id <= users; id++ {
		live := store.LiveSessions(id)
		if len(live) > 1 {
			t.Fatalf("user %d holds %d live sessions", id, len(live))
		}
		if len(live) == 1 {
			if _, err := store.GetEntry(ctx, id); !errors.Is(err, model.ErrRecordNotFound) {
				t.Fatalf("user %d is both in a session and queued", id)
			}
		}
	}
}

type claimedMidJoin struct {
	calls   int
	session model.BlindSession
}

// Current reports no session on the first lookup, as if another joiner
// claimed the user right after it.
func (c *claimedMidJoin) Current(context.Context, int64) (model.BlindSession, bool, error) {
	c.calls++
	if c.calls == 1 {
		return model.BlindSession{}, false, nil
	}
	return c.session, true, nil
}

type losingQueue struct {
	*memory.Store
}

func (q *losingQueue) ClaimAndStart(context.Context, model.BlindSession, time.Time) error {
	return model.ErrConditionFailed
}

func newTestStore() *memory.Store {
	return memory.NewStore(model.WalletDefaults{Likes: 5, ChatSlots: 2})
}

func newTestService(store *memory.Store, queue QueueStore) *Service {
	sessions := blinddate.NewService(store, store, store, nil, blinddate.Config{}, nil)
	svc := NewService(store, queue, sessions, Config{}, nil)
	svc.now = func() time.Time { return testNow }
	return svc
}

func addUser(store *memory.Store, id int64, gender enums.Gender, lookingFor enums.LookingFor, complete bool) {
	store.PutUser(memory.UserSeed{
		Profile: model.PublicProfile{UserID: id, Gender: gender},
		Dating: model.DatingProfile{
			Gender:     gender,
			LookingFor: lookingFor,
			Complete:   complete,
		},
	})
}
