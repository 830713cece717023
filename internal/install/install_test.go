package install

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOfferPromptAndChoice(t *testing.T) {
	t.Parallel()

	o := NewOffer("offer-1")
	require.NoError(t, o.Prompt())
	require.ErrorIs(t, o.Prompt(), ErrAlreadyPrompted)

	select {
	case <-o.Prompted():
	default:
		t.Fatal("Prompted not closed")
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		o.Choose(OutcomeAccepted)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := o.UserChoice(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeAccepted, got)

	require.False(t, o.Choose(OutcomeDismissed))
	got, err = o.UserChoice(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeAccepted, got)
}

func TestUserChoiceHonorsContext(t *testing.T) {
	t.Parallel()

	o := NewOffer("offer-2")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.UserChoice(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseOutcome(t *testing.T) {
	t.Parallel()

	o, err := ParseOutcome("dismissed")
	require.NoError(t, err)
	require.Equal(t, OutcomeDismissed, o)

	_, err = ParseOutcome("maybe")
	require.Error(t, err)
}
