package rules

import (
	"testing"
	"time"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
)

func TestEvaluateSessionExpiresOnlyPastDeadline(t *testing.T) {
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	session := model.BlindSession{
		Status:    enums.SessionStatusActive,
		StartTime: start,
		ExpiresAt: start.Add(SessionDuration),
	}

	if ev := EvaluateSession(session, session.ExpiresAt); ev.Expire {
		t.Fatalf("session must still be live exactly at the deadline")
	}

	ev := EvaluateSession(session, session.ExpiresAt.Add(time.Second))
	if !ev.Expire || ev.Status != enums.SessionStatusEnded {
		t.Fatalf("expected expiry past deadline, got %+v", ev)
	}

	session.Status = ev.Status
	again := EvaluateSession(session, session.ExpiresAt.Add(time.Hour))
	if again.Expire || again.Status != enums.SessionStatusEnded {
		t.Fatalf("second evaluation must be a no-op, got %+v", again)
	}
}

func TestSessionTimeLeft(t *testing.T) {
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	session := model.BlindSession{Status: enums.SessionStatusExtended, ExpiresAt: start.Add(10 * time.Minute)}
	if got := SessionTimeLeft(session, start); got != 10*time.Minute {
		t.Fatalf("unexpected time left: %s", got)
	}
	session.Status = enums.SessionStatusEnded
	if got := SessionTimeLeft(session, start); got != 0 {
		t.Fatalf("ended session must have no time left, got %s", got)
	}
}
