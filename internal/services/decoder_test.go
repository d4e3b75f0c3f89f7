package services_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdphotomoments/chatwidget/internal/services"
)

const helloStream = `data: {"choices":[{"delta":{"content":"Hel"}}]}` + "\n" +
	`data: {"choices":[{"delta":{"content":"lo"}}]}` + "\n" +
	"data: [DONE]\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func feedAll(dec *services.StreamDecoder, chunks ...string) []string {
	var deltas []string
	for _, c := range chunks {
		deltas = append(deltas, dec.Feed([]byte(c))...)
	}
	return deltas
}

func TestStreamDecoderSingleChunk(t *testing.T) {
	dec := services.NewStreamDecoder(discardLogger())

	deltas := feedAll(dec, helloStream)

	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.True(t, dec.Done())
	assert.Empty(t, dec.Remainder())
}

func TestStreamDecoderChunkBoundaryIndependent(t *testing.T) {
	for i := 0; i <= len(helloStream); i++ {
		dec := services.NewStreamDecoder(discardLogger())
		deltas := feedAll(dec, helloStream[:i], helloStream[i:])

		require.Equal(t, []string{"Hel", "lo"}, deltas, "split at %d", i)
		require.True(t, dec.Done(), "split at %d", i)
	}

	for i := 1; i < len(helloStream); i++ {
		for j := i; j < len(helloStream); j++ {
			dec := services.NewStreamDecoder(discardLogger())
			deltas := feedAll(dec, helloStream[:i], helloStream[i:j], helloStream[j:])
			require.Equal(t, "Hello", strings.Join(deltas, ""), "split at %d,%d", i, j)
		}
	}
}

func TestStreamDecoderByteByByte(t *testing.T) {
	stream := `data: {"choices":[{"delta":{"content":"📸 Chennai – héllo"}}]}` + "\n"
	dec := services.NewStreamDecoder(discardLogger())

	var deltas []string
	for i := 0; i < len(stream); i++ {
		deltas = append(deltas, dec.Feed([]byte{stream[i]})...)
	}

	assert.Equal(t, []string{"📸 Chennai – héllo"}, deltas)
}

func TestStreamDecoderSkipsMalformedLines(t *testing.T) {
	dec := services.NewStreamDecoder(discardLogger())

	deltas := feedAll(dec,
		`data: {garbage`+"\n"+`data: {"choices":[{"delta":{"content":"A"}}]}`+"\n",
		`data: not json at all`+"\n",
		`data: {"choices":[{"delta":{"content":"B"}}]}`+"\n",
	)

	assert.Equal(t, []string{"A", "B"}, deltas)
}

func TestStreamDecoderIgnoredLines(t *testing.T) {
	dec := services.NewStreamDecoder(discardLogger())

	deltas := feedAll(dec,
		"\n",
		"   \r\n",
		": keep-alive comment\n",
		"event: message\n",
		`data:{"choices":[{"delta":{"content":"no space"}}]}`+"\n",
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\n",
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`+"\n",
		`data: {"choices":[]}`+"\n",
		`  data: {"choices":[{"delta":{"content":"kept"}}]}  `+"\r\n",
	)

	assert.Equal(t, []string{"kept"}, deltas)
	assert.False(t, dec.Done())
}

func TestStreamDecoderContinuesAfterDone(t *testing.T) {
	dec := services.NewStreamDecoder(discardLogger())

	deltas := feedAll(dec,
		"data: [DONE]\n",
		`data: {"choices":[{"delta":{"content":"late"}}]}`+"\n",
	)

	assert.True(t, dec.Done())
	assert.Equal(t, []string{"late"}, deltas)
}

func TestStreamDecoderKeepsPartialLine(t *testing.T) {
	dec := services.NewStreamDecoder(discardLogger())

	deltas := feedAll(dec, `data: {"choices":[{"delta":{"content":"x"}}]}`)

	assert.Empty(t, deltas)
	assert.Equal(t, `data: {"choices":[{"delta":{"content":"x"}}]}`, string(dec.Remainder()))
}
