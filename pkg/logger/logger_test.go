package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "cannapos/internal/core/context"
)

func TestFromContext_AddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithLogger(context.Background(), FromZap(zap.New(core)))
	ctx = appctx.WithTrace(ctx, appctx.NewTrace("tr-1", "rq-1"))
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: 7, DispensaryID: 3})

	Info(ctx, "order completed", "order_id", int64(12))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "tr-1", fields["trace_id"])
	assert.Equal(t, "rq-1", fields["request_id"])
	assert.Equal(t, int64(7), fields["user_id"])
	assert.Equal(t, int64(3), fields["dispensary_id"])
	assert.Equal(t, int64(12), fields["order_id"])
}

func TestFields_Empty(t *testing.T) {
	assert.Empty(t, Fields(context.Background()))
}

func TestBuildConfig_Level(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, buildConfig(Config{Level: tt.in}).Level.Level())
		})
	}
}
