package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/aryan0dhankhar/memedata/internal/observability/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogActionCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	al := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := requestid.With(context.Background(), "req-42")
	al.LogUserDeleted(ctx, "su", "7", StatusSuccess, "")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "audit", entry["msg"])
	assert.Equal(t, "audit", entry["component"])
	assert.Equal(t, "delete", entry["action"])
	assert.Equal(t, "user", entry["resource"])
	assert.Equal(t, "7", entry["resource_id"])
	assert.Equal(t, "su", entry["actor"])
	assert.Equal(t, "req-42", entry["request_id"])
}
