// Package rpc implements the Content-Length framed JSON-RPC 2.0 wire format
// spoken between pyfinder and its client.
package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/grovetools/pyfinder/errors"
)

const (
	// JSONRPCVersion is the only protocol version accepted.
	JSONRPCVersion = "2.0"

	// ContentType is sent with every frame.
	ContentType = "application/vscode-jsonrpc; charset=utf-8"

	// MaxFrameSize bounds a single message body.
	MaxFrameSize = 64 << 20
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeResolveFailed  = -32001
)

// Message is any inbound frame. Requests carry an ID; notifications do not.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// IsRequest reports whether the message expects a response.
func (m *Message) IsRequest() bool {
	return m.Method != "" && len(m.ID) > 0 && string(m.ID) != "null"
}

// Response answers a request.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// Notification is a one-way message.
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// ResponseError is the error member of a response.
type ResponseError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// ErrorFromCode maps an error onto its wire form.
func ErrorFromCode(err error) *ResponseError {
	if err == nil {
		return nil
	}
	code := CodeInternalError
	switch errors.GetCode(err) {
	case errors.ErrCodeResolveFailed, errors.ErrCodeExecutableNotFound, errors.ErrCodeCommandFailed:
		code = CodeResolveFailed
	case errors.ErrCodeInvalidInput:
		code = CodeInvalidParams
	case errors.ErrCodeMethodNotFound:
		code = CodeMethodNotFound
	case errors.ErrCodeMalformedFrame:
		code = CodeParseError
	}
	resp := &ResponseError{Code: code, Message: err.Error()}
	if fe, ok := err.(*errors.FinderError); ok && len(fe.Details) > 0 {
		resp.Data = fe.Details
	}
	return resp
}

// Reader decodes frames from a stream. It is not safe for concurrent use.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame returns the next message body. Headers may come in any order;
// unknown headers are ignored. io.EOF is returned untouched when the stream
// ends between frames.
func (r *Reader) ReadFrame() ([]byte, error) {
	contentLength := -1
	sawHeader := false
	for {
		line, err := r.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && !sawHeader && strings.TrimSpace(line) == "" {
				return nil, io.EOF
			}
			return nil, errors.ConnectionClosed(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if !sawHeader {
				// Tolerate stray blank lines between frames.
				continue
			}
			break
		}
		sawHeader = true

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.MalformedFrame(fmt.Sprintf("invalid header line %q", line), nil)
		}
		if !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		value = strings.TrimSpace(value)
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, errors.MalformedFrame(fmt.Sprintf("invalid Content-Length value %q", value), err)
		}
		if n <= 0 || n > MaxFrameSize {
			return nil, errors.MalformedFrame(fmt.Sprintf("Content-Length out of range: %d", n), nil)
		}
		contentLength = n
	}
	if contentLength < 0 {
		return nil, errors.MalformedFrame("missing Content-Length header", nil)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, errors.ConnectionClosed(err)
	}
	return body, nil
}

// ReadMessage reads and decodes the next frame. A body that is not valid
// JSON yields a MalformedFrame error; the stream stays usable.
func (r *Reader) ReadMessage() (*Message, error) {
	body, err := r.ReadFrame()
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, errors.MalformedFrame("body is not valid JSON", err)
	}
	return &msg, nil
}

// Writer encodes frames onto a stream. It is safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteMessage marshals v and writes it as a single frame.
func (w *Writer) WriteMessage(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\nContent-Type: %s\r\n\r\n", len(data), ContentType)
	if _, err := io.WriteString(w.w, header); err != nil {
		return errors.ConnectionClosed(err)
	}
	if _, err := w.w.Write(data); err != nil {
		return errors.ConnectionClosed(err)
	}
	return nil
}

// Notify writes a notification.
func (w *Writer) Notify(method string, params interface{}) error {
	return w.WriteMessage(Notification{JSONRPC: JSONRPCVersion, Method: method, Params: params})
}

// Reply writes a successful response.
func (w *Writer) Reply(id json.RawMessage, result interface{}) error {
	return w.WriteMessage(Response{JSONRPC: JSONRPCVersion, ID: id, Result: result})
}

// ReplyError writes an error response.
func (w *Writer) ReplyError(id json.RawMessage, rerr *ResponseError) error {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return w.WriteMessage(Response{JSONRPC: JSONRPCVersion, ID: id, Error: rerr})
}
