// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jochenvw/agent-patterns/tap"
)

func sampleTaps() []tap.Tap[tap.Message] {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	return []tap.Tap[tap.Message]{
		{ID: "b1", Seq: 1, Batch: []string{"Invoked function search with params ({})"}, Summary: tap.Message{Message: "I am searching."}, Time: at},
		{ID: "b2", Seq: 2, Batch: []string{"Task finished"}, Summary: tap.Message{Message: "Task finished"}, Final: true, Fallback: true, Time: at},
	}
}

func TestWriterObserver_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	o, err := NewWriterObserver(&buf, "text", false)
	require.NoError(t, err)
	for _, tp := range sampleTaps() {
		o.Observe(tp)
	}
	require.NoError(t, o.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[1]")
	assert.Contains(t, lines[0], "I am searching.")
	assert.NotContains(t, lines[0], "done")
	assert.Contains(t, lines[1], "(unsummarized)")
	assert.Contains(t, lines[1], "done")
	assert.NotContains(t, buf.String(), "Invoked function", "lines hidden by default")
}

func TestWriterObserver_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	o, err := NewWriterObserver(&buf, "json", false)
	require.NoError(t, err)
	for _, tp := range sampleTaps() {
		o.Observe(tp)
	}

	dec := json.NewDecoder(&buf)
	var got []tap.Tap[tap.Message]
	for dec.More() {
		var tp tap.Tap[tap.Message]
		require.NoError(t, dec.Decode(&tp))
		got = append(got, tp)
	}
	assert.Equal(t, sampleTaps(), got)
}

func TestWriterObserver_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	o, err := NewWriterObserver(&buf, "yaml", false)
	require.NoError(t, err)
	for _, tp := range sampleTaps() {
		o.Observe(tp)
	}
	require.NoError(t, o.Close())

	dec := yaml.NewDecoder(&buf)
	var docs []map[string]any
	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			break
		}
		docs = append(docs, doc)
	}
	require.Len(t, docs, 2)
	assert.Equal(t, 1, docs[0]["seq"])
	assert.Equal(t, map[string]any{"message": "I am searching."}, docs[0]["summary"])
	assert.Equal(t, true, docs[1]["final"])
}

func TestNewWriterObserver_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := NewWriterObserver(&bytes.Buffer{}, "xml", false)
	assert.Error(t, err)
}
