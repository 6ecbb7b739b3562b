// Copyright (c) Microsoft. All rights reserved.

package patterns_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jochenvw/agent-patterns/patterns"
)

func TestCountdown(t *testing.T) {
	t.Parallel()

	countdown := patterns.NewCountdown(2)
	tool := countdown.Wrap(newRecordingTool("search", "3 hits", nil))
	ctx := context.Background()

	got, err := tool.Invoke(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "3 hits\n\n[Turns remaining: 1]", got)
	assert.Equal(t, 1, countdown.Remaining())

	got, err = tool.Invoke(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "3 hits\n\n[No turns remaining. Provide your final answer now.]", got)

	got, err = tool.Invoke(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "3 hits\n\n"+patterns.FinalTurnNotice, got)
	assert.Zero(t, countdown.Remaining())
}

func TestCountdown_StructuredResult(t *testing.T) {
	t.Parallel()

	countdown := patterns.NewCountdown(5)
	tool := countdown.Wrap(newRecordingTool("weather", map[string]any{"temp": 22}, nil))

	got, err := tool.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"temp":22}`+"\n\n[Turns remaining: 4]", got)
}

func TestCountdown_SharedAndFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	countdown := patterns.NewCountdown(3)
	ok := countdown.Wrap(newRecordingTool("ok", "fine", nil))
	bad := countdown.Wrap(newRecordingTool("bad", nil, boom))

	_, err := bad.Invoke(context.Background(), nil)
	assert.ErrorIs(t, err, boom)

	got, err := ok.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "fine\n\n[Turns remaining: 1]", got)
}

func TestCountdownSuffix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "\n\n[Turns remaining: 7]", patterns.CountdownSuffix(7))
	assert.Equal(t, "\n\n"+patterns.FinalTurnNotice, patterns.CountdownSuffix(0))
	assert.Equal(t, "\n\n"+patterns.FinalTurnNotice, patterns.CountdownSuffix(-1))
}
