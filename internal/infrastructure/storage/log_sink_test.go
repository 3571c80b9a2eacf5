package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogDeadLetterSink_Archive(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogDeadLetterSink(zap.New(core))

	letter := testLetter()
	require.NoError(t, sink.Archive(context.Background(), letter))

	entries := logs.FilterMessage("dead letter").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, letter.Shop, fields["shop"])
	assert.Equal(t, letter.ItemID, fields["item_id"])
	assert.Equal(t, letter.Reason, fields["reason"])
	assert.Equal(t, letter.Error, fields["error"])
}

func TestLogDeadLetterSink_NilLogger(t *testing.T) {
	sink := NewLogDeadLetterSink(nil)
	assert.NoError(t, sink.Archive(context.Background(), testLetter()))
}
