package service

import "github.com/examdrive/examdrive-backend/internal/model"

// requireState is the single transition guard of a student session. It
// returns nil when the session is in one of the allowed states and the
// reason matching the current state otherwise.
func requireState(s *model.Student, allowed ...model.SessionState) error {
	for _, a := range allowed {
		if s.State == a {
			return nil
		}
	}

	reason := ErrNotStarted
	switch s.State {
	case model.SessionInProgress:
		reason = ErrAlreadyStarted
	case model.SessionSubmitted:
		reason = ErrAlreadySubmitted
	case model.SessionDisqualified:
		reason = ErrDisqualified
	}
	return sessionStateErr(reason, s)
}
