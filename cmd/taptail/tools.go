// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	af "github.com/jochenvw/agent-patterns/agentframework"
)

// demoTools returns the tools the demo agent of "taptail run" can call.
// Files are listed relative to root.
func demoTools(root string, now func() time.Time) []af.Tool {
	weather := af.NewTypedTool("get_weather",
		"Get the current weather for a location.",
		func(ctx context.Context, args struct {
			Location string `json:"location" jsonschema:"description=City name or location,required"`
			Unit     string `json:"unit"     jsonschema:"description=Temperature unit,enum=celsius,enum=fahrenheit"`
		}) (any, error) {
			unit := args.Unit
			if unit == "" {
				unit = "celsius"
			}
			temp := 22
			if unit == "fahrenheit" {
				temp = 72
			}
			return map[string]any{
				"location":    args.Location,
				"temperature": temp,
				"unit":        unit,
				"condition":   "sunny",
			}, nil
		},
	)

	clock := af.NewTool("get_time",
		"Get the current time.",
		json.RawMessage(`{"type":"object","properties":{}}`),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			t := now()
			return map[string]string{
				"time":     t.Format("3:04 PM"),
				"date":     t.Format("Monday, January 2, 2006"),
				"timezone": t.Location().String(),
				"iso8601":  t.Format(time.RFC3339),
			}, nil
		},
	)

	files := af.NewTool("list_local_files",
		"List the files in the agent's working directory.",
		json.RawMessage(`{"type":"object","properties":{}}`),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			entries, err := os.ReadDir(root)
			if err != nil {
				return nil, &af.ToolError{
					ToolName: "list_local_files",
					Message:  "failed to read directory",
					Err:      af.ErrToolExecution,
				}
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			return map[string]any{"files": names}, nil
		},
	)

	return []af.Tool{weather, clock, files}
}
