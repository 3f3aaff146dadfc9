package dialog

import (
	"fmt"
	"log"

	"github.com/room4-2/switchboard/catalog"
	"github.com/room4-2/switchboard/session"
)

// Confidence floors for acting on a classification. Ending the call is
// deliberately easier than confirming an intent: a caller saying goodbye
// should be let go even on a weak match.
const (
	EndingConfidenceFloor  = 0.2
	ConfirmConfidenceFloor = 0.5
)

// Notifier receives human-readable status lines for operator dashboards.
// Delivery is best-effort and must never block.
type Notifier interface {
	Publish(callID, message string)
}

// Engine is the dialog state machine. Evaluate consumes one classified
// utterance and decides how the call proceeds. The caller must hold the
// session's lock for the duration of the evaluation.
type Engine struct {
	selector *catalog.Selector
	cat      *catalog.Catalog
	notifier Notifier
}

// NewEngine creates an engine. notifier may be nil.
func NewEngine(cat *catalog.Catalog, selector *catalog.Selector, notifier Notifier) *Engine {
	return &Engine{
		selector: selector,
		cat:      cat,
		notifier: notifier,
	}
}

// Evaluate applies the dialog policy to one classified utterance.
// On error the session is left untouched so a retried event can still
// succeed; errors here are catalog gaps, surfaced as server errors.
func (e *Engine) Evaluate(sess *session.CallSession, intent string, score float64) (Decision, error) {
	// Already-terminated calls are answered with a hang-up prompt, never
	// re-evaluated.
	if sess.Phase.Terminal() {
		log.Printf("⚠️ [%s] Call already %s", sess.ID, sess.Phase)
		return e.hangUp(sess, false)
	}

	// A caller may end the call at any point, in any phase.
	if score > EndingConfidenceFloor && e.cat.IsEnding(intent) {
		return e.hangUp(sess, true)
	}

	switch sess.Phase {
	case session.PhaseUnknown:
		log.Printf("📞 [%s] Current intent unknown, input %s, score %.2f", sess.ID, intent, score)
		e.notify(sess.ID, fmt.Sprintf("Current intent [unknown]. Got intent [%s@%.2f]", intent, score))

		if score > ConfirmConfidenceFloor {
			if intent == catalog.TransferIntent {
				return e.transfer(sess)
			}
			return e.confirm(sess, intent)
		}
		return e.fallback(sess)

	case session.PhaseConfirmed:
		log.Printf("📞 [%s] Current intent %s, input %s, score %.2f", sess.ID, sess.Intent, intent, score)
		e.notify(sess.ID, fmt.Sprintf("Current intent [%s]. Got intent [%s@%.2f]", sess.Intent, intent, score))

		// Keep answering from the confirmed intent's prompt set regardless
		// of the new classification, until an ending intent shows up.
		return e.playConfirmed(sess)

	default:
		return Decision{Outcome: OutcomeReject}, fmt.Errorf("call %s in invalid phase %d", sess.ID, sess.Phase)
	}
}

// Fallback returns the generic "didn't understand" decision without touching
// the session. Used directly by the dispatcher for blank transcripts.
func (e *Engine) Fallback(sess *session.CallSession) (Decision, error) {
	return e.fallback(sess)
}

func (e *Engine) fallback(sess *session.CallSession) (Decision, error) {
	prompt, err := e.selector.PickFallback()
	if err != nil {
		return Decision{Outcome: OutcomeReject}, err
	}
	e.notify(sess.ID, "Play prompt for unrecognized input")
	return Decision{Outcome: OutcomeContinue, Prompt: prompt}, nil
}

func (e *Engine) hangUp(sess *session.CallSession, transition bool) (Decision, error) {
	prompt, err := e.selector.PickEnding()
	if err != nil {
		return Decision{Outcome: OutcomeReject}, err
	}
	if transition {
		sess.Phase = session.PhaseHungUp
	}
	e.notify(sess.ID, "Hang up")
	return Decision{Outcome: OutcomeHangUp, Prompt: prompt}, nil
}

func (e *Engine) transfer(sess *session.CallSession) (Decision, error) {
	prompt, err := e.selector.PickTransfer()
	if err != nil {
		return Decision{Outcome: OutcomeReject}, err
	}
	sess.Phase = session.PhaseTransferred
	log.Printf("📞 [%s] Transferring call to %s", sess.ID, e.selector.TransferTo())
	e.notify(sess.ID, "Transfer the call to human")
	return Decision{Outcome: OutcomeTransfer, Prompt: prompt, TransferTo: e.selector.TransferTo()}, nil
}

func (e *Engine) confirm(sess *session.CallSession, intent string) (Decision, error) {
	prompt, err := e.selector.PickForIntent(&sess.PendingPrompts, intent)
	if err != nil {
		// Leave the phase untouched so the next utterance is re-evaluated.
		return Decision{Outcome: OutcomeReject}, err
	}
	sess.Phase = session.PhaseConfirmed
	sess.Intent = intent
	e.notify(sess.ID, fmt.Sprintf("Play prompt for intent %s", intent))
	return Decision{Outcome: OutcomeContinue, Prompt: prompt}, nil
}

func (e *Engine) playConfirmed(sess *session.CallSession) (Decision, error) {
	prompt, err := e.selector.PickForIntent(&sess.PendingPrompts, sess.Intent)
	if err != nil {
		return Decision{Outcome: OutcomeReject}, err
	}
	e.notify(sess.ID, fmt.Sprintf("Play prompt for intent %s", sess.Intent))
	return Decision{Outcome: OutcomeContinue, Prompt: prompt}, nil
}

func (e *Engine) notify(callID, message string) {
	if e.notifier != nil {
		e.notifier.Publish(callID, message)
	}
}
