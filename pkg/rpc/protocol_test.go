package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/grovetools/pyfinder/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(body string, headers ...string) string {
	if len(headers) == 0 {
		headers = []string{fmt.Sprintf("Content-Length: %d", len(body))}
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}

func TestWriterProducesFramedMessages(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Notify(NotifyLog, LogParams{Level: "info", Message: "hello"}))

	out := buf.String()
	body := `{"jsonrpc":"2.0","method":"log","params":{"level":"info","message":"hello"}}`
	assert.Equal(t, fmt.Sprintf("Content-Length: %d\r\nContent-Type: %s\r\n\r\n%s", len(body), ContentType, body), out)

	msg, err := NewReader(&buf).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, NotifyLog, msg.Method)
	assert.False(t, msg.IsRequest())
}

func TestReaderAcceptsAnyHeaderOrder(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":7,"method":"refresh","params":{}}`
	stream := frame(body,
		"Content-Type: application/vscode-jsonrpc; charset=utf-8",
		"X-Trace: abc",
		fmt.Sprintf("content-length: %d", len(body)),
	)

	msg, err := NewReader(strings.NewReader(stream)).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, MethodRefresh, msg.Method)
	assert.Equal(t, json.RawMessage("7"), msg.ID)
	assert.True(t, msg.IsRequest())
}

func TestReaderRejectsBadFrames(t *testing.T) {
	tests := []struct {
		name   string
		stream string
	}{
		{"missing length", "Content-Type: x\r\n\r\n{}"},
		{"zero length", frame("{}", "Content-Length: 0")},
		{"non numeric length", frame("{}", "Content-Length: abc")},
		{"header without colon", frame("{}", "garbage")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.stream)).ReadFrame()
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeMalformedFrame, errors.GetCode(err))
		})
	}
}

func TestReaderRecoversAfterInvalidJSON(t *testing.T) {
	good := `{"jsonrpc":"2.0","id":"a","method":"resolve","params":{"executable":"/x"}}`
	r := NewReader(strings.NewReader(frame("{nope") + frame(good)))

	_, err := r.ReadMessage()
	assert.Equal(t, errors.ErrCodeMalformedFrame, errors.GetCode(err))

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, MethodResolve, msg.Method)
	assert.Equal(t, json.RawMessage(`"a"`), msg.ID)
}

func TestReaderEndOfStream(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"x"}`
	r := NewReader(strings.NewReader(frame(body)))
	_, err := r.ReadFrame()
	require.NoError(t, err)

	_, err = r.ReadFrame()
	assert.Equal(t, io.EOF, err)

	_, err = NewReader(strings.NewReader("Content-Length: 50\r\n\r\n{}")).ReadFrame()
	assert.Equal(t, errors.ErrCodeConnectionClosed, errors.GetCode(err))
}

func TestErrorFromCode(t *testing.T) {
	assert.Nil(t, ErrorFromCode(nil))
	assert.Equal(t, CodeResolveFailed, ErrorFromCode(errors.ResolveFailed("/x", "nope")).Code)
	assert.Equal(t, CodeResolveFailed, ErrorFromCode(errors.ExecutableNotFound("/x")).Code)
	assert.Equal(t, CodeInvalidParams, ErrorFromCode(errors.InvalidParams("resolve", fmt.Errorf("bad"))).Code)
	assert.Equal(t, CodeMethodNotFound, ErrorFromCode(errors.MethodNotFound("shutdown")).Code)
	assert.Equal(t, CodeInternalError, ErrorFromCode(fmt.Errorf("boom")).Code)

	rerr := ErrorFromCode(errors.ExecutableNotFound("/x"))
	assert.Equal(t, map[string]interface{}{"executable": "/x"}, rerr.Data)
}

func TestReplyErrorUsesNullID(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).ReplyError(nil, &ResponseError{Code: CodeParseError, Message: "bad"}))

	msg, err := NewReader(&buf).ReadMessage()
	require.NoError(t, err)
	require.NotNil(t, msg.Error)
	assert.Equal(t, CodeParseError, msg.Error.Code)
	assert.Equal(t, json.RawMessage("null"), msg.ID)
}
