package model

// Action is the coarse recommendation bucket.
type Action string

const (
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionAccumulate Action = "ACCUMULATE"
	ActionHold       Action = "HOLD"
	ActionWait       Action = "WAIT"
	ActionReduce     Action = "REDUCE"
	ActionAvoid      Action = "AVOID"
)

// Advice is the output of the advisory engine.
type Advice struct {
	Rule    string
	Action  Action
	Message string
	Warning string
}
