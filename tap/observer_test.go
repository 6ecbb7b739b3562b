// Copyright (c) Microsoft. All rights reserved.

package tap_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jochenvw/agent-patterns/tap"
)

func sampleTap(seq int, final bool) tap.Tap[tap.Message] {
	return tap.Tap[tap.Message]{
		ID:      "batch-" + string(rune('0'+seq)),
		Seq:     seq,
		Batch:   []string{"Invoked function search with params ({})"},
		Summary: tap.Message{Message: "I am searching."},
		Final:   final,
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taps.jsonl")
	sink, err := tap.NewFileSink(path)
	require.NoError(t, err)

	var sinkErrs []error
	observe := tap.SinkObserver[tap.Message](sink, func(err error) { sinkErrs = append(sinkErrs, err) })
	observe(sampleTap(1, false))
	observe(sampleTap(2, true))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close(), "close is idempotent")

	observe(sampleTap(3, true))
	require.Len(t, sinkErrs, 1)
	assert.ErrorIs(t, sinkErrs[0], os.ErrClosed)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []tap.Tap[tap.Message]
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var tp tap.Tap[tap.Message]
		require.NoError(t, json.Unmarshal(sc.Bytes(), &tp))
		got = append(got, tp)
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, 2)
	assert.Equal(t, sampleTap(1, false), got[0])
	assert.Equal(t, sampleTap(2, true), got[1])
}

func TestFileSink_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taps.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"existing\":true}\n"), 0o644))

	sink, err := tap.NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Record(map[string]int{"seq": 1}))
	require.NoError(t, sink.Flush())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"existing\":true}\n{\"seq\":1}\n", string(data))
}

func TestNewFileSink_BadPath(t *testing.T) {
	_, err := tap.NewFileSink(filepath.Join(t.TempDir(), "missing", "taps.jsonl"))
	assert.Error(t, err)
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	tap.LogObserver[tap.Message](logger)(sampleTap(2, true))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "tap", rec["msg"])
	assert.Equal(t, float64(2), rec["seq"])
	assert.Equal(t, true, rec["final"])
	assert.Equal(t, float64(1), rec["lines"])
}

func TestFanout(t *testing.T) {
	var order []string
	obs := tap.Fanout(
		func(tap.Tap[tap.Message]) { order = append(order, "a") },
		func(tap.Tap[tap.Message]) { order = append(order, "b") },
	)
	obs(sampleTap(1, false))
	assert.Equal(t, []string{"a", "b"}, order)
}
