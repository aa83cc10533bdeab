package assistant

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
	maxErrorBody = 64 * 1024
)

// Merger accumulates stream frames into a single model message. Frames
// must be applied in arrival order.
type Merger struct {
	content  strings.Builder
	metadata map[string]any
	sources  []Source
	done     bool
}

// Apply merges one frame and reports whether the accumulated content
// changed. Frames applied after a done frame are ignored.
func (m *Merger) Apply(frame StreamFrame) bool {
	if m.done {
		return false
	}
	changed := false
	if frame.Content != "" {
		m.content.WriteString(frame.Content)
		changed = true
	}
	if frame.Metadata != nil {
		m.metadata = frame.Metadata
	}
	if frame.Sources != nil {
		m.sources = frame.Sources
	}
	if frame.Done {
		m.done = true
	}
	return changed
}

// Content returns the accumulated content so far.
func (m *Merger) Content() string {
	return m.content.String()
}

// Done reports whether a done frame has been applied.
func (m *Merger) Done() bool {
	return m.done
}

// Final builds the finalized message from everything applied so far.
func (m *Merger) Final() Message {
	msg := Message{
		Role:     RoleModel,
		Content:  m.content.String(),
		Metadata: m.metadata,
	}
	if len(m.sources) > 0 {
		msg.Sources = m.sources
	}
	return msg
}

// FromDocument builds the final message from a non-streaming response.
// The metadata is the top-level metadata object with the knowledgeBase
// sub-object merged over it; knowledgeBase wins on conflicting keys.
func FromDocument(doc *Document) Message {
	msg := Message{Role: RoleModel, Content: doc.Content}
	if len(doc.Sources) > 0 {
		msg.Sources = doc.Sources
	}
	if doc.Metadata != nil || doc.KnowledgeBase != nil {
		msg.Metadata = make(map[string]any, len(doc.Metadata)+len(doc.KnowledgeBase))
		for k, v := range doc.Metadata {
			msg.Metadata[k] = v
		}
		for k, v := range doc.KnowledgeBase {
			msg.Metadata[k] = v
		}
	}
	return msg
}

// FillEmpty returns msg, or for a model message with blank content a copy
// carrying EmptyResponseMessage and metadata.empty. A finalized reply is
// never empty, so it cannot be mistaken for a placeholder.
func FillEmpty(msg Message) Message {
	if msg.Role != RoleModel || strings.TrimSpace(msg.Content) != "" {
		return msg
	}
	meta := make(map[string]any, len(msg.Metadata)+1)
	for k, v := range msg.Metadata {
		meta[k] = v
	}
	meta["empty"] = true
	msg.Content = EmptyResponseMessage
	msg.Metadata = meta
	return msg
}

// IsEventStream reports whether the header announces SSE framing.
func IsEventStream(h http.Header) bool {
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "text/event-stream"
}

// CheckStatus returns an *HTTPError for non-2xx responses. The server's
// `error` field is preferred, then a string `detail`, then the default text.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Error  string `json:"error"`
		Detail any    `json:"detail"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Error
		if msg == "" {
			if detail, ok := payload.Detail.(string); ok {
				msg = detail
			}
		}
	}
	if msg == "" {
		msg = DefaultHTTPErrorMessage
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
}

// Decode consumes a chat response. Status is checked before any frame is
// processed; framing is chosen from the Content-Type header.
func Decode(ctx context.Context, resp *http.Response, onDelta func(content string)) (*Message, error) {
	if err := CheckStatus(resp); err != nil {
		return nil, err
	}
	if IsEventStream(resp.Header) {
		return ReadStream(ctx, resp.Body, onDelta)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	msg := FromDocument(&doc)
	return &msg, nil
}

// ReadStream merges an SSE body into a final message. A body that ends
// without a done frame still finalizes with whatever was accumulated.
func ReadStream(ctx context.Context, body io.Reader, onDelta func(content string)) (*Message, error) {
	var m Merger
	err := ReadSSE(ctx, body, func(frame StreamFrame) bool {
		if m.Apply(frame) && onDelta != nil {
			onDelta(m.Content())
		}
		return !m.Done()
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = &TransportError{Err: err}
		}
		return nil, &StreamError{Partial: m.Content(), Err: err}
	}
	if !m.Done() {
		slog.Debug("stream closed without done frame", "content_len", len(m.Content()))
	}
	msg := m.Final()
	return &msg, nil
}

// ReadSSE reads newline-delimited `data: ` lines from r and calls fn with
// each decoded frame until fn returns false or the body ends. Malformed
// payloads are logged and skipped.
func ReadSSE(ctx context.Context, r io.Reader, fn func(StreamFrame) bool) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadString('\n')
		if line != "" {
			if !handleLine(strings.TrimRight(line, "\r\n"), fn) {
				return nil
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}

func handleLine(line string, fn func(StreamFrame) bool) bool {
	if !strings.HasPrefix(line, dataPrefix) {
		return true
	}
	payload := line[len(dataPrefix):]
	if payload == doneSentinel {
		return fn(StreamFrame{Done: true})
	}

	var frame StreamFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		slog.Warn("skipping malformed stream frame", "error", err, "payload", truncate(payload, 120))
		return true
	}
	return fn(frame)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
