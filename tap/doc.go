// Copyright (c) Microsoft. All rights reserved.

// Package tap turns an agent's update stream into periodic, plain-language
// progress summaries.
//
// A [Pipeline] sits between [agentframework.Agent.RunStream] and an observer.
// Every tool invocation becomes a line such as
//
//	Invoked function search with params ({"q":"go"})
//
// Lines are buffered; each time the buffer reaches the flush threshold the
// batch is handed to a [Paraphraser] in the background and the resulting
// [Tap] is delivered to the observer. When the stream ends the sentinel
// line "Task finished" is appended and the final batch is paraphrased and
// delivered before [Pipeline.Wrap] returns, so every run produces at least
// one tap.
//
//	para := tap.NewChatParaphraser[tap.Message](client)
//	pl, err := tap.New(para, func(t tap.Tap[tap.Message]) {
//	    fmt.Println(t.Summary.Message)
//	})
//	if err != nil {
//	    return err
//	}
//	stream, err := agent.RunStream(ctx, messages)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	resp, err := pl.Wrap(ctx, stream)
//
// Summaries are structured: any JSON-decodable type can replace [Message],
// and its schema is sent to the model as the required response format.
package tap
