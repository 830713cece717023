// Package install models the platform's deferred "install this app" offer.
package install

import (
	"context"
	"fmt"

	"github.com/bhandras/replbox/internal/signal"
)

// Outcome is the user's answer to an install prompt.
type Outcome string

const (
	// OutcomeAccepted means the user installed the app.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeDismissed means the user closed the prompt.
	OutcomeDismissed Outcome = "dismissed"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeAccepted || o == OutcomeDismissed
}

// ParseOutcome parses an outcome name.
func ParseOutcome(raw string) (Outcome, error) {
	o := Outcome(raw)
	if !o.Valid() {
		return "", fmt.Errorf("unknown install outcome %q", raw)
	}
	return o, nil
}

// Handle is a pending install offer. Prompt shows the platform dialog once;
// UserChoice blocks until the user answers.
type Handle interface {
	Prompt() error
	UserChoice(ctx context.Context) (Outcome, error)
}

// ErrAlreadyPrompted is returned when Prompt is called twice on one offer.
var ErrAlreadyPrompted = fmt.Errorf("install prompt already shown")

// Offer is the Handle used when the offer arrives from a remote client: the
// client shows the dialog and reports the answer through Choose.
type Offer struct {
	ID string

	prompted *signal.Event
	choice   *signal.Future[Outcome]
}

var _ Handle = (*Offer)(nil)

// NewOffer returns a pending offer.
func NewOffer(id string) *Offer {
	return &Offer{
		ID:       id,
		prompted: signal.NewEvent(),
		choice:   signal.NewFuture[Outcome](),
	}
}

// Prompt implements Handle.
func (o *Offer) Prompt() error {
	if !signal.Fire(o.prompted) {
		return ErrAlreadyPrompted
	}
	return nil
}

// Prompted is closed once Prompt has been called.
func (o *Offer) Prompted() <-chan struct{} {
	return o.prompted.Done()
}

// UserChoice implements Handle.
func (o *Offer) UserChoice(ctx context.Context) (Outcome, error) {
	return o.choice.Wait(ctx)
}

// Choose records the user's answer. It reports false if an answer was
// already recorded.
func (o *Offer) Choose(outcome Outcome) bool {
	return o.choice.Resolve(outcome)
}
