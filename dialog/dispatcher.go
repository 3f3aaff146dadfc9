package dialog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/room4-2/switchboard/catalog"
	"github.com/room4-2/switchboard/classifier"
	"github.com/room4-2/switchboard/metrics"
	"github.com/room4-2/switchboard/session"
)

// ErrInvalidSession is returned when an event references a call id that was
// never answered. Such events are rejected rather than silently creating
// state: only the answer event may create a session.
var ErrInvalidSession = errors.New("unknown call id")

// Dispatcher is the orchestration entry point: it resolves the call's
// session, runs classification, and delegates to the engine.
type Dispatcher struct {
	store      *session.Store
	engine     *Engine
	cat        *catalog.Catalog
	classifier classifier.Client
	timeout    time.Duration
	notifier   Notifier
	metrics    *metrics.Metrics
}

// NewDispatcher wires the dispatcher. notifier and m may be nil.
func NewDispatcher(store *session.Store, engine *Engine, cat *catalog.Catalog, cls classifier.Client, timeout time.Duration, notifier Notifier, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		store:      store,
		engine:     engine,
		cat:        cat,
		classifier: cls,
		timeout:    timeout,
		notifier:   notifier,
		metrics:    m,
	}
}

// OnCallStart creates the call's session (idempotently: a duplicate answer
// event must not reset an in-progress call) and returns the greeting.
func (d *Dispatcher) OnCallStart(ctx context.Context, callID, caller string) (Decision, error) {
	sess, created, err := d.store.GetOrCreate(ctx, callID, caller)
	if err != nil {
		return Decision{Outcome: OutcomeReject}, err
	}

	if created {
		log.Printf("📞 Incoming call from %s with id %s", caller, callID)
		if d.notifier != nil {
			d.notifier.Publish(callID, fmt.Sprintf("Answered the phone call from %s", caller))
		}
		if d.metrics != nil {
			d.metrics.CallsAnswered.Inc()
		}
	} else {
		log.Printf("⚠️ Duplicate answer event for call %s, keeping existing state", callID)
		sess.Touch()
	}

	return Decision{Outcome: OutcomeContinue, Prompt: d.cat.Greeting()}, nil
}

// OnTranscript handles one final transcript for an answered call. Blank
// transcripts skip classification entirely and re-prompt without mutating
// the call's phase. Classification failure degrades to the low-confidence
// path rather than failing the call.
func (d *Dispatcher) OnTranscript(ctx context.Context, callID, transcript string) (Decision, error) {
	sess, ok := d.store.Get(callID)
	if !ok {
		return Decision{Outcome: OutcomeReject}, fmt.Errorf("%w: %s", ErrInvalidSession, callID)
	}

	sess.Lock()
	defer sess.Unlock()
	sess.Touch()

	var decision Decision
	var err error
	if strings.TrimSpace(transcript) == "" {
		decision, err = d.engine.Fallback(sess)
	} else {
		intent, score := d.classify(ctx, transcript)
		decision, err = d.engine.Evaluate(sess, intent, score)
	}
	if err != nil {
		return decision, err
	}

	d.store.Mirror(ctx, sess)
	if d.metrics != nil {
		d.metrics.Decisions.WithLabelValues(decision.Outcome.String()).Inc()
	}
	return decision, nil
}

// OnIntentQuery classifies arbitrary text without touching any session.
// Diagnostic side channel for operators.
func (d *Dispatcher) OnIntentQuery(ctx context.Context, text string) (classifier.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, err := d.classifier.Classify(ctx, text)
	if err != nil {
		return classifier.Result{}, err
	}
	if d.notifier != nil {
		d.notifier.Publish("", fmt.Sprintf("%s: %s@%.2f", text, result.Intent, result.Score))
	}
	return result, nil
}

// classify runs the bounded classification request. Any failure, timeout
// included, degrades to a zero-score result so the engine takes its
// low-confidence branch; the call never hangs on the classifier.
func (d *Dispatcher) classify(ctx context.Context, transcript string) (string, float64) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result, err := d.classifier.Classify(ctx, transcript)
	if d.metrics != nil {
		d.metrics.ClassificationSeconds.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		log.Printf("❌ Classification failed, degrading to fallback: %v", err)
		if d.metrics != nil {
			d.metrics.ClassificationFailures.Inc()
		}
		return "", 0
	}
	return result.Intent, result.Score
}
