package recorder

import "time"

// RunEvent is one symbol's outcome within a run.
type RunEvent struct {
	RunID     string
	Mode      string // "run" or "backfill"
	Session   string // "intraday", "prior_close", "post_close"
	Symbol    string
	Price     float64
	PrevClose float64
	ChangePct float64
	Source    string
	Rule      string
	Action    string
	Persisted bool
	Delivered int    // channels that accepted the push
	Outcome   string // "done", "unavailable", "aborted", "failed"
	At        time.Time
}

// Recorder keeps an audit log of what each run observed and pushed.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	Close() error
}
