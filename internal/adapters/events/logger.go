package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// ZerologAdapter routes watermill's internal logging through zerolog.
type ZerologAdapter struct {
	l zerolog.Logger
}

func NewLogger(l zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{l: l.With().Str("component", "watermill").Logger()}
}

func (z *ZerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	z.l.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (z *ZerologAdapter) Info(msg string, fields watermill.LogFields) {
	z.l.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (z *ZerologAdapter) Debug(msg string, fields watermill.LogFields) {
	z.l.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (z *ZerologAdapter) Trace(msg string, fields watermill.LogFields) {
	z.l.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (z *ZerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &ZerologAdapter{l: z.l.With().Fields(map[string]interface{}(fields)).Logger()}
}
