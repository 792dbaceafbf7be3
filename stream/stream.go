// Package stream holds small generic channel pipelines.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
)

// maxLineBytes bounds a single line; a FeatureCollection per line can be large.
const maxLineBytes = 4 << 20

func Slice[T any](ctx context.Context, in []T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for _, element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

// Lines sends each non-blank line of in, trimmed, until in is exhausted
// or ctx is done. Reads happen on their own goroutine, so receivers that
// also select on ctx are never held up by a blocked reader like stdin.
// That goroutine exits once its pending read returns.
//
// The returned err func reports the read error, if any, after the
// channel is closed.
func Lines(ctx context.Context, in io.Reader) (<-chan []byte, func() error) {
	out := make(chan []byte)
	var readErr error
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- bytes.Clone(line):
			}
		}
		readErr = scanner.Err()
	}()
	return out, func() error { return readErr }
}

// NDJSON decodes newline-delimited JSON values of T from in.
// Lines that fail to decode are logged and skipped.
// The channel closes when in is exhausted or as soon as ctx is done.
func NDJSON[T any](ctx context.Context, in io.Reader) <-chan T {
	out := make(chan T)
	lines, readErr := Lines(ctx, in)
	go func() {
		defer close(out)
		for {
			var line []byte
			var ok bool
			select {
			case <-ctx.Done():
				return
			case line, ok = <-lines:
			}
			if !ok {
				if err := readErr(); err != nil {
					slog.Warn("NDJSON read failed", "error", err)
				}
				return
			}
			var element T
			if err := json.Unmarshal(line, &element); err != nil {
				slog.Warn("NDJSON decode error, skipping", "error", err)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

func Filter[T any](ctx context.Context, predicate func(T) bool, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for element := range in {
			if !predicate(element) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

func Transform[I any, O any](ctx context.Context, transformer func(I) O, in <-chan I) <-chan O {
	out := make(chan O)
	go func() {
		defer close(out)
		for element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- transformer(element):
			}
		}
	}()
	return out
}
