package tlstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func captureLogger() (*TLSLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewTLSLogger(slog.New(handler)), &buf
}

func TestLogHandshakeFailureLevels(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{
			name:      "timeout logs at warn",
			err:       NewHandshakeFailureError("std", context.DeadlineExceeded),
			wantLevel: "level=WARN",
		},
		{
			name:      "wrapped timeout logs at warn",
			err:       fmt.Errorf("connect: %w", NewHandshakeFailureError("utls", context.DeadlineExceeded)),
			wantLevel: "level=WARN",
		},
		{
			name:      "protocol failure logs at error",
			err:       NewHandshakeFailureError("std", errors.New("bad certificate")),
			wantLevel: "level=ERROR",
		},
		{
			name:      "plain error logs at error",
			err:       errors.New("connection reset"),
			wantLevel: "level=ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := captureLogger()
			logger.LogHandshakeFailure(context.Background(), "attempt-1", "localhost", "std", tt.err, 10*time.Millisecond)

			out := buf.String()
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, "event=handshake_failure")
			assert.Contains(t, out, "component=tlstream")
		})
	}
}

func TestLogTrustAllWarningLevel(t *testing.T) {
	logger, buf := captureLogger()
	logger.LogTrustAllWarning(context.Background())

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "event=trust_all")
}
