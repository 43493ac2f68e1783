package sink

import (
	"context"

	"go.uber.org/zap"
)

// Log stands in for a real stream outside production. It only logs the
// framed record and never fails.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) PutEvent(_ context.Context, payload map[string]any) error {
	data, err := Encode(payload)
	if err != nil {
		l.logger.Warn("mock sink could not encode event", zap.String("event_id", eventID(payload)), zap.Error(err))
		return nil
	}
	l.logger.Info("mock sink would send",
		zap.String("event_id", eventID(payload)),
		zap.ByteString("record", data),
	)
	return nil
}
