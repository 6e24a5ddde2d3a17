package scheduler

import "time"

// Session is the time-of-day gate of a run.
type Session string

const (
	SessionIntraday   Session = "intraday"
	SessionPriorClose Session = "prior_close"
	SessionPostClose  Session = "post_close"
)

// SessionAt classifies now by minutes after local midnight: before
// priorCloseAt is intraday, before postCloseAt is the prior-close recap,
// anything later is post-close.
func SessionAt(now time.Time, priorCloseAt, postCloseAt int) Session {
	m := now.Hour()*60 + now.Minute()
	switch {
	case m < priorCloseAt:
		return SessionIntraday
	case m < postCloseAt:
		return SessionPriorClose
	default:
		return SessionPostClose
	}
}
