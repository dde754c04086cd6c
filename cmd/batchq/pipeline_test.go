package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/bft-labs/batchq/pkg/batchq"
	"github.com/bft-labs/batchq/pkg/sender"
)

// syncBuffer is a bytes.Buffer safe for concurrent writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines(t *testing.T) []outputLine {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []outputLine
	scanner := bufio.NewScanner(strings.NewReader(b.buf.String()))
	for scanner.Scan() {
		var l outputLine
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			t.Fatalf("bad output line %q: %v", scanner.Text(), err)
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// echoSender answers every entry with {"echo": <request>}.
func echoSender(t *testing.T) sender.Sender[message, json.RawMessage] {
	return sender.Func[message, json.RawMessage](
		func(ctx context.Context, meta sender.Metadata, entries []sender.Entry[message]) (map[string]sender.Result[json.RawMessage], error) {
			if meta.Destination == "down" {
				return nil, errors.New("service unavailable")
			}
			results := make(map[string]sender.Result[json.RawMessage], len(entries))
			for _, e := range entries {
				body, err := json.Marshal(map[string]any{"echo": e.Request})
				if err != nil {
					t.Errorf("marshal request: %v", err)
				}
				results[e.ID] = sender.Result[json.RawMessage]{Response: body}
			}
			return results, nil
		})
}

func newTestManager(t *testing.T) *batchq.Manager[message, json.RawMessage] {
	t.Helper()
	m, err := batchq.New[message, json.RawMessage](echoSender(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestPipeline_Run(t *testing.T) {
	m := newTestManager(t)
	out := &syncBuffer{}
	p := newPipeline(m, out, nil)

	input := strings.Join([]string{
		`{"id":"a","destination":"orders","body":{"n":1},"flush":true}`,
		``,
		`not json`,
		`{"body":{"n":2}}`,
		`{"id":"b","destination":"down","body":"x","flush":true}`,
		`{"id":"c","destination":"orders","body":[1,2]}`,
	}, "\n")

	if err := p.Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	p.Wait()

	lines := out.lines(t)
	if len(lines) != 5 {
		t.Fatalf("got %d result lines, want 5: %+v", len(lines), lines)
	}

	tests := []struct {
		line      int
		id        string
		wantResp  string
		wantError string
	}{
		{1, "a", `{"echo":{"n":1}}`, ""},
		{3, "", "", "decode"},
		{4, "", "", "missing destination"},
		{5, "b", "", "service unavailable"},
		{6, "c", `{"echo":[1,2]}`, ""},
	}
	for i, tt := range tests {
		got := lines[i]
		if got.Line != tt.line || got.ID != tt.id {
			t.Errorf("result %d = line %d id %q, want line %d id %q", i, got.Line, got.ID, tt.line, tt.id)
			continue
		}
		if tt.wantError != "" {
			if !strings.Contains(got.Error, tt.wantError) {
				t.Errorf("line %d error = %q, want it to contain %q", tt.line, got.Error, tt.wantError)
			}
			continue
		}
		if got.Error != "" || string(got.Response) != tt.wantResp {
			t.Errorf("line %d = (%s, %q), want %s", tt.line, got.Response, got.Error, tt.wantResp)
		}
	}
}

func TestPipeline_ClosedManager(t *testing.T) {
	m := newTestManager(t)
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	out := &syncBuffer{}
	p := newPipeline(m, out, nil)
	if err := p.Run(context.Background(), strings.NewReader(`{"destination":"q","body":1}`)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	p.Wait()

	lines := out.lines(t)
	if len(lines) != 1 || lines[0].Error != batchq.ErrClosed.Error() {
		t.Errorf("result = %+v, want ErrClosed", lines)
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(newTestManager(t), &syncBuffer{}, nil)
	if err := p.Run(ctx, strings.NewReader("{}\n")); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestMessage_JSON(t *testing.T) {
	tests := []struct {
		msg  message
		want string
	}{
		{message{body: json.RawMessage(`{"a":1}`)}, `{"a":1}`},
		{message{}, `null`},
	}

	for _, tt := range tests {
		got, err := json.Marshal(tt.msg)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal() = %s, want %s", got, tt.want)
		}
	}

	if !(message{flush: true}).FlushNow() {
		t.Error("FlushNow() = false for a flush line")
	}
}
