package session

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/grovetools/pyfinder/logging"
	"github.com/grovetools/pyfinder/pkg/models"
	"github.com/grovetools/pyfinder/pkg/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) messages(t *testing.T) []*rpc.Message {
	t.Helper()
	b.mu.Lock()
	data := append([]byte(nil), b.buf.Bytes()...)
	b.mu.Unlock()

	var out []*rpc.Message
	r := rpc.NewReader(bytes.NewReader(data))
	for {
		msg, err := r.ReadMessage()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, msg)
	}
}

func TestDispatcherDeduplicates(t *testing.T) {
	var buf lockedBuffer
	d := NewDispatcher(rpc.NewWriter(&buf), func(p string) string { return p }, logging.NewLogger("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	conda := &models.Manager{Tool: models.ToolConda, Executable: "/opt/conda/bin/conda", Version: "24.1.2"}
	env := &models.Environment{
		Executable: "/opt/conda/envs/a/bin/python",
		Prefix:     "/opt/conda/envs/a",
		Kind:       models.KindConda,
		Manager:    conda,
	}
	emit := runEmitter{ctx: ctx, dispatcher: d}
	emit.EmitManager(conda)
	emit.EmitEnvironment(env)
	emit.EmitEnvironment(env.Clone())
	emit.EmitManager(conda)
	require.NoError(t, d.Flush(ctx))

	msgs := buf.messages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, rpc.NotifyManager, msgs[0].Method)
	assert.Equal(t, rpc.NotifyEnvironment, msgs[1].Method)
}

func TestDispatcherReportsManagerBeforeEnvironment(t *testing.T) {
	var buf lockedBuffer
	d := NewDispatcher(rpc.NewWriter(&buf), func(p string) string { return p }, logging.NewLogger("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	emit := runEmitter{ctx: ctx, dispatcher: d}
	emit.EmitEnvironment(&models.Environment{
		Executable: "/home/u/.pyenv/versions/3.12.1/bin/python",
		Kind:       models.KindPyenv,
		Manager:    &models.Manager{Tool: models.ToolPyenv, Executable: "/home/u/.pyenv/bin/pyenv"},
	})
	require.NoError(t, d.Flush(ctx))

	msgs := buf.messages(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, rpc.NotifyManager, msgs[0].Method)
	assert.Equal(t, rpc.NotifyEnvironment, msgs[1].Method)
}

func TestFlushHonoursCancellation(t *testing.T) {
	d := NewDispatcher(rpc.NewWriter(io.Discard), func(p string) string { return p }, logging.NewLogger("test"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Flush(ctx), context.Canceled)
}
