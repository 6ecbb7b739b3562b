// Copyright (c) Microsoft. All rights reserved.

package tap_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	af "github.com/jochenvw/agent-patterns/agentframework"
	"github.com/jochenvw/agent-patterns/tap"
)

// fakeChat answers every request with reply (or err) and keeps the last request.
type fakeChat struct {
	reply    string
	err      error
	messages []af.Message
	opts     *af.ChatOptions
	calls    int
}

func (f *fakeChat) Response(_ context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ChatResponse, error) {
	f.calls++
	f.messages = messages
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &af.ChatResponse{Messages: []af.Message{af.NewAssistantMessage(f.reply)}}, nil
}

func (f *fakeChat) StreamResponse(context.Context, []af.Message, *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	return nil, errors.New("not implemented")
}

func TestChatParaphraser_Request(t *testing.T) {
	chat := &fakeChat{reply: `{"message":"I am searching for Go tutorials."}`}
	temp := 0.2
	p := tap.NewChatParaphraser[tap.Message](chat, tap.WithChatOptions(&af.ChatOptions{ModelID: "gpt-4o-mini", Temperature: &temp}))

	got, err := p.Paraphrase(context.Background(), []string{
		`Invoked function search with params ({"q":"go tutorials"})`,
		`Invoked function fetch with params ({"url":"https://go.dev"})`,
	})
	require.NoError(t, err)
	assert.Equal(t, "I am searching for Go tutorials.", got.Message)

	require.Len(t, chat.messages, 2)
	assert.Equal(t, af.RoleSystem, chat.messages[0].Role)
	assert.Equal(t, tap.DefaultInstructions, chat.messages[0].Text())
	assert.Equal(t, af.RoleUser, chat.messages[1].Role)
	assert.Equal(t,
		"Invoked function search with params ({\"q\":\"go tutorials\"})\nInvoked function fetch with params ({\"url\":\"https://go.dev\"})",
		chat.messages[1].Text())

	require.NotNil(t, chat.opts)
	assert.Equal(t, "gpt-4o-mini", chat.opts.ModelID)
	require.NotNil(t, chat.opts.Temperature)
	assert.InDelta(t, 0.2, *chat.opts.Temperature, 1e-9)
	require.NotNil(t, chat.opts.ResponseFormat)
	assert.Equal(t, "tap_summary", chat.opts.ResponseFormat.Name)
	assert.False(t, chat.opts.ResponseFormat.Strict)
	assert.JSONEq(t, string(p.Schema()), string(chat.opts.ResponseFormat.Schema))
}

func TestChatParaphraser_DefaultSchema(t *testing.T) {
	p := tap.NewChatParaphraser[tap.Message](&fakeChat{})

	var schema struct {
		Type       string                     `json:"type"`
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`

		AdditionalProperties json.RawMessage `json:"additionalProperties"`
	}
	require.NoError(t, json.Unmarshal(p.Schema(), &schema))
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "message")
	assert.Equal(t, []string{"message"}, schema.Required)
	assert.JSONEq(t, "false", string(schema.AdditionalProperties))
}

func TestChatParaphraser_OpenSchemaToleratesExtraFields(t *testing.T) {
	open := json.RawMessage(`{"type":"object","properties":{"message":{"type":"string"}},"required":["message"]}`)
	p := tap.NewChatParaphraser[tap.Message](&fakeChat{reply: `{"message":"I am done.","mood":"happy"}`}, tap.WithSchema(open))

	got, err := p.Paraphrase(context.Background(), []string{"line"})
	require.NoError(t, err)
	assert.Equal(t, "I am done.", got.Message)
}

func TestChatParaphraser_Options(t *testing.T) {
	chat := &fakeChat{reply: `{"message":"ok"}`}
	custom := json.RawMessage(`{"type":"object","properties":{"message":{"type":"string"}},"required":["message"]}`)
	p := tap.NewChatParaphraser[tap.Message](chat,
		tap.WithInstructions("Summarize in French."),
		tap.WithSchema(custom),
		tap.WithSchemaName("progress"),
		tap.WithStrictSchema(),
	)

	_, err := p.Paraphrase(context.Background(), []string{"line"})
	require.NoError(t, err)
	assert.Equal(t, "Summarize in French.", chat.messages[0].Text())
	assert.Equal(t, "progress", chat.opts.ResponseFormat.Name)
	assert.True(t, chat.opts.ResponseFormat.Strict)
	assert.JSONEq(t, string(custom), string(chat.opts.ResponseFormat.Schema))
}

// progress is a richer summary with two required fields.
type progress struct {
	Message   string   `json:"message" jsonschema:"required"`
	ToolsUsed []string `json:"toolsUsed" jsonschema:"required"`
}

func TestChatParaphraser_CustomSummaryType(t *testing.T) {
	chat := &fakeChat{reply: `{"message":"I looked up the weather.","toolsUsed":["weather","geocode"]}`}
	p := tap.NewChatParaphraser[progress](chat)

	got, err := p.Paraphrase(context.Background(), []string{"Invoked function weather with params ({})"})
	require.NoError(t, err)
	assert.Equal(t, progress{Message: "I looked up the weather.", ToolsUsed: []string{"weather", "geocode"}}, got)
	assert.ElementsMatch(t, []string{"message", "toolsUsed"}, af.RequiredProperties(chat.opts.ResponseFormat.Schema))

	chat.reply = `{"message":"I looked up the weather."}`
	_, err = p.Paraphrase(context.Background(), []string{"Invoked function weather with params ({})"})
	assert.ErrorIs(t, err, tap.ErrMalformedSummary)
}

func TestChatParaphraser_Replies(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr error
	}{
		{name: "plain", reply: `{"message":"I am done."}`, want: "I am done."},
		{name: "fenced", reply: "```json\n{\"message\":\"I am done.\"}\n```", want: "I am done."},
		{name: "bare fence", reply: "```\n{\"message\":\"I am done.\"}```", want: "I am done."},
		{name: "extra fields", reply: `{"message":"I am done.","mood":"happy"}`, wantErr: tap.ErrMalformedSummary},
		{name: "not json", reply: "I am done.", wantErr: tap.ErrMalformedSummary},
		{name: "empty", reply: "", wantErr: tap.ErrMalformedSummary},
		{name: "null", reply: "null", wantErr: tap.ErrMalformedSummary},
		{name: "array", reply: `["I am done."]`, wantErr: tap.ErrMalformedSummary},
		{name: "missing required", reply: `{"text":"I am done."}`, wantErr: tap.ErrMalformedSummary},
		{name: "null required", reply: `{"message":null}`, wantErr: tap.ErrMalformedSummary},
		{name: "wrong type", reply: `{"message":42}`, wantErr: tap.ErrMalformedSummary},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := tap.NewChatParaphraser[tap.Message](&fakeChat{reply: tc.reply})
			got, err := p.Paraphrase(context.Background(), []string{"line"})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.ErrorIs(t, err, tap.ErrParaphrase)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Message)
		})
	}
}

func TestChatParaphraser_EmptyBatch(t *testing.T) {
	chat := &fakeChat{}
	p := tap.NewChatParaphraser[tap.Message](chat)

	_, err := p.Paraphrase(context.Background(), nil)
	assert.ErrorIs(t, err, tap.ErrEmptyBatch)
	assert.Zero(t, chat.calls)
}

func TestChatParaphraser_ClientError(t *testing.T) {
	chat := &fakeChat{err: &af.ServiceError{StatusCode: 429, Message: "slow down", Err: af.ErrRateLimit}}
	p := tap.NewChatParaphraser[tap.Message](chat)

	_, err := p.Paraphrase(context.Background(), []string{"line"})
	assert.ErrorIs(t, err, af.ErrRateLimit)
	assert.Equal(t, 1, chat.calls, "no retry")
}

func TestChatParaphraser_NilClient(t *testing.T) {
	p := tap.NewChatParaphraser[tap.Message](nil)
	_, err := p.Paraphrase(context.Background(), []string{"line"})
	assert.Error(t, err)

	var nilPara *tap.ChatParaphraser[tap.Message]
	_, err = nilPara.Paraphrase(context.Background(), []string{"line"})
	assert.Error(t, err)
}

func TestChatParaphraser_InPipeline(t *testing.T) {
	chat := &fakeChat{reply: `{"message":"I searched twice."}`}
	rec := &recorder{}
	pl, err := tap.New[tap.Message](tap.NewChatParaphraser[tap.Message](chat), rec.observe)
	require.NoError(t, err)

	_, err = pl.Wrap(context.Background(), streamOf([]af.AgentResponseUpdate{
		callUpdate("search", `{"q":"a"}`),
		callUpdate("search", `{"q":"b"}`),
	}, nil))
	require.NoError(t, err)

	taps := rec.bySeq()
	require.Len(t, taps, 1)
	assert.Equal(t, "I searched twice.", taps[0].Summary.Message)
	assert.Equal(t,
		"Invoked function search with params ({\"q\":\"a\"})\nInvoked function search with params ({\"q\":\"b\"})\nTask finished",
		chat.messages[1].Text())
}
