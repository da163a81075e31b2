package llm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"folio/internal/domain"
)

// maxSSELine bounds a single SSE line; grounded replies can carry large
// metadata payloads on one line.
const maxSSELine = 1024 * 1024

// parseSSEStream reads SSE-formatted lines from body and converts each data
// payload into a ResponseChunk using parseData. The returned channel is
// closed when the body is exhausted. A payload that fails to parse, a read
// error or a cancelled ctx ends the stream with a final chunk carrying Err.
//
// Sends block until received: the consumer must drain the channel.
func parseSSEStream(ctx context.Context, body io.ReadCloser, parseData func(data []byte) (*domain.ResponseChunk, error)) <-chan domain.ResponseChunk {
	ch := make(chan domain.ResponseChunk, 16)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				ch <- domain.ResponseChunk{Err: err}
				return
			}

			line := scanner.Bytes()

			// Skip empty lines and comments.
			if len(line) == 0 || line[0] == ':' {
				continue
			}

			data, ok := bytes.CutPrefix(line, []byte("data:"))
			if !ok {
				continue
			}
			data = bytes.TrimSpace(data)
			if len(data) == 0 {
				continue
			}
			if bytes.Equal(data, []byte("[DONE]")) {
				return
			}

			chunk, err := parseData(data)
			if err != nil {
				ch <- domain.ResponseChunk{Err: fmt.Errorf("%w: %w", domain.ErrMalformedChunk, err)}
				return
			}
			if chunk == nil {
				continue
			}

			ch <- *chunk
			if chunk.Err != nil {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			// Prefer the cancellation cause over the read error it triggered.
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			ch <- domain.ResponseChunk{Err: fmt.Errorf("read stream: %w", err)}
		}
	}()
	return ch
}
