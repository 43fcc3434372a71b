package notify

import (
	"context"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
)

type Notifier interface {
	Notify(ctx context.Context, event model.Event)
}

// Multi delivers every event to each of its notifiers in order. Nil entries are skipped.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event model.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}
