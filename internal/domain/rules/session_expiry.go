package rules

import (
	"time"

	"github.com/ivankudzin/blinddate/internal/domain/enums"
	"github.com/ivankudzin/blinddate/internal/domain/model"
)

type SessionEvaluation struct {
	Status enums.SessionStatus
	// Expire is set when the stored status is live but the deadline has passed.
	Expire bool
}

// EvaluateSession is the only place that decides whether a blind-date session has run out.
func EvaluateSession(session model.BlindSession, now time.Time) SessionEvaluation {
	if session.Status.Live() && now.After(session.ExpiresAt) {
		return SessionEvaluation{Status: enums.SessionStatusEnded, Expire: true}
	}
	return SessionEvaluation{Status: session.Status}
}

func SessionTimeLeft(session model.BlindSession, now time.Time) time.Duration {
	if !session.Status.Live() {
		return 0
	}
	left := session.ExpiresAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
