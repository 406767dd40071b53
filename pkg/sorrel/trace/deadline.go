package trace

import (
	"context"

	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/evaluator"
)

// Deadline interrupts ectx when ctx is done. The pending interrupt is
// raised at the next block entry as a RUN-0010 error naming the cause.
// Call stop once the evaluation has finished.
func Deadline(ctx context.Context, ectx *evaluator.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		ectx.Interrupt(serrors.New("RUN-0010", map[string]any{"Reason": context.Cause(ctx).Error()}))
	})
}
