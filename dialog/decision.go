package dialog

// Outcome is what the transport should do with the call next.
type Outcome int

const (
	OutcomeContinue Outcome = iota // Play the prompt, then listen again
	OutcomeTransfer                // Play the prompt, then dial a human
	OutcomeHangUp                  // Play the prompt, then terminate
	OutcomeReject                  // Transport-level error response, no prompt
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeTransfer:
		return "transfer"
	case OutcomeHangUp:
		return "hang_up"
	case OutcomeReject:
		return "reject"
	default:
		return "invalid"
	}
}

// Decision is the engine's answer for one call event.
type Decision struct {
	Outcome    Outcome
	Prompt     string // Prompt id to play; empty for OutcomeReject
	TransferTo string // Routing address; set only for OutcomeTransfer
}
