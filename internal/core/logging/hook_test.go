package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHook_Run(t *testing.T) {
	tests := []struct {
		name      string
		setupCtx  func() context.Context
		wantKeys  []string
		wantEmpty []string
	}{
		{
			name: "repo and request id",
			setupCtx: func() context.Context {
				ctx := WithRepo(context.Background(), "octo/demo")
				return WithRequestID(ctx, "req-1")
			},
			wantKeys: []string{"repo", "request_id"},
		},
		{
			name: "only repo",
			setupCtx: func() context.Context {
				return WithRepo(context.Background(), "octo/demo")
			},
			wantKeys:  []string{"repo"},
			wantEmpty: []string{"request_id"},
		},
		{
			name:      "no context values",
			setupCtx:  context.Background,
			wantEmpty: []string{"repo", "request_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			logger := zerolog.New(&buf).Hook(ContextHook{})
			logger.Info().Ctx(tt.setupCtx()).Msg("test")

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

			for _, key := range tt.wantKeys {
				assert.Contains(t, entry, key)
			}
			for _, key := range tt.wantEmpty {
				assert.NotContains(t, entry, key)
			}
		})
	}
}

func TestContextHook_Values(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(ContextHook{})

	ctx := WithRequestID(context.Background(), "req-42")
	logger.Warn().Ctx(ctx).Msg("stale result")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.NotContains(t, entry, "repo")

	buf.Reset()
	ctx = WithRepo(ctx, "octo/demo")
	logger.Info().Ctx(ctx).Msg("analysis done")

	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "octo/demo", entry["repo"])
	assert.Equal(t, "req-42", entry["request_id"])
}
