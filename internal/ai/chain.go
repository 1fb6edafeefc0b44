package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"decision-intel/backend/internal/intel"
)

// drafterChain tries each enabled drafter in order until one yields a usable narrative.
type drafterChain []Drafter

// WithFallback returns a drafter that tries primary first and then fallback. A primary that
// errors or answers without a summary or stance label hands over to the fallback; a cancelled
// request stops the chain.
func WithFallback(primary, fallback Drafter) Drafter {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return drafterChain{primary, fallback}
}

func (c drafterChain) Enabled() bool {
	for _, d := range c {
		if d.Enabled() {
			return true
		}
	}
	return false
}

func (c drafterChain) Draft(ctx context.Context, result intel.AggregateResult) (Narrative, error) {
	var errs []error
	for i, d := range c {
		if !d.Enabled() {
			continue
		}
		narrative, err := d.Draft(ctx, result)
		if err == nil && !narrative.usable() {
			err = errors.New("narrative missing summary or label")
		}
		if err == nil {
			return narrative, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Narrative{}, ctxErr
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"request_id": result.RequestID,
			"drafter":    i,
		}).Warn("drafter failed; trying next")
		errs = append(errs, fmt.Errorf("drafter %d: %w", i, err))
	}
	if len(errs) == 0 {
		return Narrative{}, ErrDisabled
	}
	return Narrative{}, errors.Join(errs...)
}
