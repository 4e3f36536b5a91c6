package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
)

// ToolCallFragment is a partial slice of one tool call as produced by the
// stream. Index correlates fragments of the same call within one turn.
type ToolCallFragment struct {
	Index          int
	ID             string
	Name           string
	ArgumentsDelta string
}

// Delta is one element of a completion stream
type Delta struct {
	Content   string
	ToolCalls []ToolCallFragment
}

// Empty reports whether the delta carries neither text nor tool calls
func (d Delta) Empty() bool {
	return d.Content == "" && len(d.ToolCalls) == 0
}

// ChunkReader is implemented by provider-specific stream decoders. Recv
// returns io.EOF at the normal end of the stream.
type ChunkReader interface {
	Recv() (Delta, error)
	Close() error
}

// Stream is a lazy, finite, non-restartable sequence of deltas
type Stream struct {
	provider string
	reader   ChunkReader
	done     bool
}

// NewStream wraps a provider chunk reader
func NewStream(provider string, r ChunkReader) *Stream {
	return &Stream{provider: provider, reader: r}
}

// Recv returns the next non-empty delta. It returns io.EOF once the stream
// is exhausted and a *StreamError if the transport failed mid-stream.
func (s *Stream) Recv() (Delta, error) {
	if s.done {
		return Delta{}, io.EOF
	}
	for {
		d, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			return Delta{}, io.EOF
		}
		if err != nil {
			s.done = true
			return Delta{}, &StreamError{Provider: s.provider, Cause: err}
		}
		if d.Empty() {
			continue
		}
		return d, nil
	}
}

// Close releases the underlying connection
func (s *Stream) Close() error {
	s.done = true
	return s.reader.Close()
}

// SetupError reports that a completion stream could not be created
// (network, configuration, timeout, or a non-streaming response).
type SetupError struct {
	Provider string
	Cause    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: create chat completion stream: %v", e.Provider, e.Cause)
}

func (e *SetupError) Unwrap() error { return e.Cause }

// StreamError reports a failure after the stream was established
type StreamError struct {
	Provider string
	Cause    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s: stream aborted: %v", e.Provider, e.Cause)
}

func (e *StreamError) Unwrap() error { return e.Cause }

// Result is the outcome of opening a stream: either a usable Stream or the
// reason it could not be started.
type Result struct {
	Stream *Stream
	Err    error
}

// OK reports whether the stream was created
func (r Result) OK() bool { return r.Err == nil && r.Stream != nil }

// Open creates a stream and converts any failure, including a panic inside
// the provider, into a Result carrying a *SetupError.
func Open(ctx context.Context, p Provider, req *Request) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Result{Err: &SetupError{Provider: p.Name(), Cause: fmt.Errorf("panic: %v", rec)}}
			log.Printf("[LLM] Failed to create chat completion: %v", res.Err)
		}
	}()

	s, err := p.Stream(ctx, req)
	if err == nil && s == nil {
		err = errors.New("provider returned no stream")
	}
	if err != nil {
		var setupErr *SetupError
		if !errors.As(err, &setupErr) {
			setupErr = &SetupError{Provider: p.Name(), Cause: err}
		}
		log.Printf("[LLM] Failed to create chat completion: %v", setupErr)
		return Result{Err: setupErr}
	}
	return Result{Stream: s}
}

// Deltas iterates the stream, closing it when iteration stops. A failed
// Result yields nothing. A mid-stream failure is yielded once as the final
// element with a zero Delta.
func (r Result) Deltas() iter.Seq2[Delta, error] {
	return func(yield func(Delta, error) bool) {
		if !r.OK() {
			return
		}
		defer r.Stream.Close()
		for {
			d, err := r.Stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Delta{}, err)
				return
			}
			if !yield(d, nil) {
				return
			}
		}
	}
}
