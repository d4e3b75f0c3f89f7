package services

import (
	"bytes"
	"encoding/json"
	"log/slog"

	goopenai "github.com/sashabaranov/go-openai"
)

var (
	dataPrefix   = []byte("data: ")
	doneSentinel = []byte("data: [DONE]")
)

// StreamDecoder turns the body of a streamed chat completion into content deltas. The body is a sequence of
// newline-terminated `data: <json>` lines; chunks handed to Feed may end anywhere, including inside a line or
// inside a multi-byte character, and the decoder yields the same deltas however the bytes are split.
type StreamDecoder struct {
	buf  []byte
	done bool

	logger *slog.Logger
}

// NewStreamDecoder creates a decoder that reports skipped lines to logger.
func NewStreamDecoder(logger *slog.Logger) *StreamDecoder {
	return &StreamDecoder{logger: logger}
}

// Feed appends chunk to the pending buffer, processes every complete line and returns the non-empty content
// deltas found, in order. The trailing partial line stays buffered for the next call.
func (d *StreamDecoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var deltas []string
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx == -1 {
			break
		}
		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]

		if delta := d.processLine(line); delta != "" {
			deltas = append(deltas, delta)
		}
	}

	// Compact so the retained fragment does not pin the whole history of chunks.
	if len(d.buf) == 0 {
		d.buf = nil
	} else {
		d.buf = append([]byte(nil), d.buf...)
	}

	return deltas
}

// Done reports whether the `data: [DONE]` sentinel has been seen.
func (d *StreamDecoder) Done() bool {
	return d.done
}

// Remainder returns the buffered bytes that do not yet form a complete line.
func (d *StreamDecoder) Remainder() []byte {
	return d.buf
}

func (d *StreamDecoder) processLine(raw []byte) string {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return ""
	}
	if bytes.Equal(line, doneSentinel) {
		d.done = true
		return ""
	}

	var res goopenai.ChatCompletionStreamResponse
	if err := json.Unmarshal(line[len(dataPrefix):], &res); err != nil {
		d.logger.Warn("Skipping malformed stream line",
			slog.String("line", string(line)),
			slog.String(errLoggerKey, err.Error()))
		return ""
	}

	if len(res.Choices) == 0 {
		return ""
	}
	return res.Choices[0].Delta.Content
}
