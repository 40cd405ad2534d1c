package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatJSON, slog.LevelWarn)

	logger.Info("dropped")
	logger.Warn("kept", "step", "InsertAppointment")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "InsertAppointment", record["step"])
}

func TestContextLogger(t *testing.T) {
	logger := Discard()
	ctx := ContextWithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
	assert.Same(t, logger, FromContextOr(context.Background(), logger))
	assert.Same(t, logger, FromContextOr(ctx, nil))
	assert.NotNil(t, FromContextOr(context.Background(), nil))
	assert.Equal(t, context.Background(), ContextWithLogger(context.Background(), nil))
}
