package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/pricesync/backend/internal/application/pricingsync"
)

// LogDeadLetterSink writes dead letters to the log instead of object storage.
// Used when no bucket is configured.
type LogDeadLetterSink struct {
	logger *zap.Logger
}

// NewLogDeadLetterSink creates a new LogDeadLetterSink
func NewLogDeadLetterSink(logger *zap.Logger) *LogDeadLetterSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDeadLetterSink{logger: logger}
}

var _ pricingsync.DeadLetterSink = (*LogDeadLetterSink)(nil)

// Archive logs letter at error level
func (s *LogDeadLetterSink) Archive(_ context.Context, letter pricingsync.DeadLetter) error {
	s.logger.Error("dead letter",
		zap.String("topic", letter.Topic),
		zap.String("shop", letter.Shop),
		zap.Int64("item_id", letter.ItemID),
		zap.String("delivery_id", letter.DeliveryID),
		zap.String("reason", letter.Reason),
		zap.String("error", letter.Error),
		zap.Strings("trail", letter.Trail),
		zap.ByteString("payload", letter.Payload),
		zap.Time("failed_at", letter.FailedAt))
	return nil
}
