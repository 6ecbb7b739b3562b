// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/jochenvw/agent-patterns/tap"
)

type styles struct {
	seq      lipgloss.Style
	summary  lipgloss.Style
	done     lipgloss.Style
	fallback lipgloss.Style
	line     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		seq:      lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		summary:  lipgloss.NewStyle(),
		done:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		fallback: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		line:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true),
	}
}

// WriterObserver prints taps to w as styled text, JSON Lines or a YAML
// document stream. It is safe for concurrent use.
type WriterObserver struct {
	mu      sync.Mutex
	w       io.Writer
	format  string
	showRaw bool
	styles  styles
	enc     *json.Encoder
	yenc    *yaml.Encoder
}

// NewWriterObserver returns an observer for format "text", "json" or "yaml".
// With showRaw, text output lists the batch lines under each summary.
func NewWriterObserver(w io.Writer, format string, showRaw bool) (*WriterObserver, error) {
	o := &WriterObserver{w: w, format: format, showRaw: showRaw, styles: defaultStyles()}
	switch format {
	case "text":
	case "json":
		o.enc = json.NewEncoder(w)
	case "yaml":
		o.yenc = yaml.NewEncoder(w)
		o.yenc.SetIndent(2)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return o, nil
}

// Observe writes t. Write errors are logged.
func (o *WriterObserver) Observe(t tap.Tap[tap.Message]) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var err error
	switch o.format {
	case "json":
		err = o.enc.Encode(t)
	case "yaml":
		err = o.yenc.Encode(t)
	default:
		_, err = io.WriteString(o.w, o.renderText(t))
	}
	if err != nil {
		slog.Error("write tap", "seq", t.Seq, "error", err)
	}
}

// Close ends the YAML stream. It does not close the writer.
func (o *WriterObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.yenc != nil {
		return o.yenc.Close()
	}
	return nil
}

func (o *WriterObserver) renderText(t tap.Tap[tap.Message]) string {
	var b strings.Builder
	b.WriteString(o.styles.seq.Render(fmt.Sprintf("[%d]", t.Seq)))
	b.WriteString(" ")
	b.WriteString(o.styles.summary.Render(t.Summary.Message))
	if t.Fallback {
		b.WriteString(" ")
		b.WriteString(o.styles.fallback.Render("(unsummarized)"))
	}
	if t.Final {
		b.WriteString(" ")
		b.WriteString(o.styles.done.Render("done"))
	}
	b.WriteString("\n")
	if o.showRaw {
		for _, line := range t.Batch {
			b.WriteString("    ")
			b.WriteString(o.styles.line.Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}
