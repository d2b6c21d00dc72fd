package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithFieldsAttachesChildLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	ctx := WithContext(context.Background(), &base)

	ctx = WithFields(ctx, map[string]string{"session_id": "42"})
	FromContext(ctx).Info().Msg("hello")

	if !strings.Contains(buf.String(), `"session_id":"42"`) {
		t.Fatalf("expected session_id field, got %s", buf.String())
	}
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected global logger")
	}
}
