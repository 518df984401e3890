// Package background observes notifications the content module sends while
// it initializes.
package background

import (
	"context"

	"go.uber.org/zap"

	"github.com/byteowlz/pagebridge/internal/messaging"
)

// Listener logs content notifications. It never keeps a channel open.
type Listener struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{logger: logger}
}

func (l *Listener) OnMessage(_ context.Context, msg messaging.Message, sender messaging.Sender) *messaging.Future {
	switch msg.Action {
	case messaging.ActionPageLoaded:
		l.logger.Info("page loaded",
			zap.String("url", msg.URL),
			zap.String("sender", sender.ID))
	case messaging.ActionElementFound:
		l.logger.Info("elements found",
			zap.String("selector", msg.Selector),
			zap.Int("count", msg.Count),
			zap.String("sender", sender.ID))
	}
	return nil
}
