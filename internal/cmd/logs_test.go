package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maykaila/memora/internal/errors"
)

const sampleLog = `{"time":"2026-03-01T10:00:01.5Z","level":"INFO","msg":"signed in","uid":"u1"}
{"time":"2026-03-01T10:00:02Z","level":"DEBUG","msg":"request completed","request_id":"req-1","status":200}

time=2026-03-01T10:00:03Z level=WARN msg="role lookup failed" request_id=req-2
{"time":"2026-03-01T10:00:04Z","level":"ERROR","msg":"delete rolled back","request_id":"req-2"}
`

func writeLog(t *testing.T, h *harness) string {
	t.Helper()
	path := filepath.Join(h.cfg.Home, "memora.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o600))
	return path
}

func TestLogs(t *testing.T) {
	h := newHarness(t)
	writeLog(t, h)

	out, err := h.run("logs", "-n", "2")
	require.NoError(t, err)
	assert.Equal(t,
		"time=2026-03-01T10:00:03Z level=WARN msg=\"role lookup failed\" request_id=req-2\n"+
			"[10:00:04] ERROR delete rolled back request_id=req-2\n",
		out)

	out, err = h.run("logs", "--request", "req-1")
	require.NoError(t, err)
	assert.Equal(t, "[10:00:02] DEBUG request completed request_id=req-1 status=200\n", out)
}

func TestLogs_Missing(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("logs")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotFound))
}

func TestFormatLogLine(t *testing.T) {
	assert.Equal(t, "[10:00:01] INFO  signed in uid=u1",
		formatLogLine(`{"time":"2026-03-01T10:00:01.5Z","level":"INFO","msg":"signed in","uid":"u1"}`))
	assert.Equal(t, "not json", formatLogLine("not json"))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFollowLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memora.log")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	r, err := os.Open(path)
	require.NoError(t, err)
	defer r.Close()
	w, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- followLog(ctx, &out, r, func(line string) bool { return strings.Contains(line, "keep") })
	}()

	_, err = w.WriteString("keep one\nskip\nkeep ")
	require.NoError(t, err)
	time.Sleep(150 * time.Millisecond)
	_, err = w.WriteString("two\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return out.String() == "keep one\nkeep two\n"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
