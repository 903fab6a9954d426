package notify

import (
	"context"

	"go.uber.org/zap"
)

type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(zap.String("mod", "notify"))}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	entities := make([]string, 0, len(n.Entities))
	for _, e := range n.Entities {
		entities = append(entities, string(e))
	}

	l.logger.Warn(n.Message,
		zap.String("id", n.ID.String()),
		zap.String("kind", string(n.Kind)),
		zap.Strings("entities", entities),
	)
	return nil
}
