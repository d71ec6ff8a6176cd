// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// Record is a captured log entry with its attributes flattened.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps every record in memory.
type LogCapture struct {
	mu      *sync.Mutex
	records *[]Record
	attrs   []slog.Attr
}

func NewLogCapture() *LogCapture {
	return &LogCapture{mu: &sync.Mutex{}, records: &[]Record{}}
}

// Logger returns a logger writing into the capture.
func (c *LogCapture) Logger() *slog.Logger {
	return slog.New(c)
}

func (c *LogCapture) Enabled(context.Context, slog.Level) bool {
	return true
}

func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(c.attrs)+r.NumAttrs())
	for _, a := range c.attrs {
		attrs[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()

		return true
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	*c.records = append(*c.records, Record{Level: r.Level, Message: r.Message, Attrs: attrs})

	return nil
}

func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *c
	next.attrs = append(append([]slog.Attr{}, c.attrs...), attrs...)

	return &next
}

// WithGroup is not needed by the engine; groups are flattened.
func (c *LogCapture) WithGroup(string) slog.Handler {
	return c
}

// Records returns a copy of every captured record.
func (c *LogCapture) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Record{}, *c.records...)
}

// WithAttr returns the records whose attribute key equals value.
func (c *LogCapture) WithAttr(key string, value any) []Record {
	var matching []Record
	for _, r := range c.Records() {
		if v, ok := r.Attrs[key]; ok && v == value {
			matching = append(matching, r)
		}
	}

	return matching
}

// HasAttr returns the records carrying key, whatever its value.
func (c *LogCapture) HasAttr(key string) []Record {
	var matching []Record
	for _, r := range c.Records() {
		if _, ok := r.Attrs[key]; ok {
			matching = append(matching, r)
		}
	}

	return matching
}
