package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/bft-labs/batchq/pkg/batchq"
	"github.com/bft-labs/batchq/pkg/log"
)

// maxLineBytes bounds one input line.
const maxLineBytes = 4 << 20

// message is the request type the CLI batches. It encodes as its raw body.
type message struct {
	body  json.RawMessage
	flush bool
}

// MarshalJSON returns the request body unchanged.
func (m message) MarshalJSON() ([]byte, error) {
	if len(m.body) == 0 {
		return []byte("null"), nil
	}
	return m.body, nil
}

// FlushNow reports whether the input line asked for an immediate send.
func (m message) FlushNow() bool { return m.flush }

// inputLine is one JSON line read from stdin.
type inputLine struct {
	ID          string          `json:"id,omitempty"`
	Destination string          `json:"destination"`
	Body        json.RawMessage `json:"body"`
	Flush       bool            `json:"flush,omitempty"`
}

// outputLine is the result written to stdout for one input line.
type outputLine struct {
	Line        int             `json:"line"`
	ID          string          `json:"id,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
}

var errNoDestination = errors.New("missing destination")

type submitter interface {
	Submit(destination string, req message) (*batchq.Completion[json.RawMessage], error)
}

// pipeline submits input lines and writes one result line per request,
// in completion order.
type pipeline struct {
	manager submitter
	logger  log.Logger

	mu  sync.Mutex
	out *json.Encoder

	wg sync.WaitGroup
}

func newPipeline(manager submitter, out io.Writer, logger log.Logger) *pipeline {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &pipeline{
		manager: manager,
		logger:  logger,
		out:     json.NewEncoder(out),
	}
}

// Run reads lines from in until EOF or ctx is cancelled.
// It returns before the submitted requests complete; call Wait for that.
func (p *pipeline) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		p.handle(line, text)
	}
	return scanner.Err()
}

// Wait blocks until every submitted request has produced its result line.
func (p *pipeline) Wait() {
	p.wg.Wait()
}

func (p *pipeline) handle(line int, text []byte) {
	var in inputLine
	if err := json.Unmarshal(text, &in); err != nil {
		p.write(outputLine{Line: line, Error: "decode: " + err.Error()})
		return
	}
	result := outputLine{Line: line, ID: in.ID, Destination: in.Destination}
	if in.Destination == "" {
		result.Error = errNoDestination.Error()
		p.write(result)
		return
	}

	c, err := p.manager.Submit(in.Destination, message{body: in.Body, flush: in.Flush})
	if err != nil {
		p.logger.Warn("submit rejected", log.Int("line", line), log.String("destination", in.Destination), log.Err(err))
		result.Error = err.Error()
		p.write(result)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Every completion settles: on send, or with ErrCancelled on close
		resp, err := c.Wait(context.Background())
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Response = resp
		}
		p.write(result)
	}()
}

func (p *pipeline) write(result outputLine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.out.Encode(result); err != nil {
		p.logger.Error("write result", log.Int("line", result.Line), log.Err(err))
	}
}
