package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TraceEntry is one line of a model's fitness history. The trace lives
// next to the artifact as trace.jsonl, one JSON object per line.
type TraceEntry struct {
	// Iteration numbers start at 1.
	Iteration int `json:"iteration"`

	// Fitness is the best fitness at this iteration, in the problem's own
	// sign (training loss for weight searches).
	Fitness float64 `json:"fitness"`

	Timestamp time.Time `json:"timestamp"`

	// Weights optionally snapshots the best flat weight vector. Usually
	// omitted to keep traces small.
	Weights []float64 `json:"weights,omitempty"`
}

// tracePath locates a model's trace file under the store layout.
func tracePath(baseDir, modelID string) string {
	return filepath.Join(baseDir, "models", modelID, "trace.jsonl")
}

// TraceWriter appends fitness history lines to a model's trace file
// through a buffer. Safe for concurrent use.
type TraceWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	path string
}

// NewTraceWriter opens the trace file for a model, creating the model
// directory as needed. With appendTo set, an existing trace grows instead
// of being truncated; resumed training runs use this to keep one
// continuous history.
func NewTraceWriter(baseDir, modelID string, appendTo bool) (*TraceWriter, error) {
	path := tracePath(baseDir, modelID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendTo {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	return &TraceWriter{
		file: file,
		buf:  bufio.NewWriterSize(file, 64*1024),
		path: path,
	}, nil
}

// Write buffers one entry as a JSON line. Data reaches disk on Flush or
// Close.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal trace entry: %w", err)
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()
	if _, err := tw.buf.Write(data); err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	if err := tw.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	return nil
}

// WriteCurve records a whole fitness curve, one entry per iteration.
// Entries share a single timestamp; iteration numbers start at 1.
func (tw *TraceWriter) WriteCurve(curve []float64) error {
	now := time.Now()
	for i, fitness := range curve {
		err := tw.Write(TraceEntry{Iteration: i + 1, Fitness: fitness, Timestamp: now})
		if err != nil {
			return err
		}
	}
	return nil
}

// Flush drains the buffer and syncs the file.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.buf.Flush(); err != nil {
		return fmt.Errorf("flush trace buffer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("sync trace file: %w", err)
	}
	return nil
}

// Close drains the buffer and closes the file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	flushErr := tw.buf.Flush()
	closeErr := tw.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush trace buffer: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close trace file: %w", closeErr)
	}
	return nil
}

// Path returns the trace file location.
func (tw *TraceWriter) Path() string { return tw.path }

// TraceReader iterates the entries of a model's trace file.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewTraceReader opens a model's trace for reading. A model without a
// trace yields a NotFoundError.
func NewTraceReader(baseDir, modelID string) (*TraceReader, error) {
	file, err := os.Open(tracePath(baseDir, modelID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{ModelID: modelID}
		}
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	// Lines carrying weight snapshots can get long.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &TraceReader{file: file, scanner: scanner}, nil
}

// Read returns the next entry, or io.EOF after the last one.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan trace line: %w", err)
		}
		return nil, io.EOF
	}

	var entry TraceEntry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal trace entry: %w", err)
	}
	return &entry, nil
}

// ReadAll slurps every remaining entry.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
}

// Close closes the underlying file.
func (tr *TraceReader) Close() error {
	if err := tr.file.Close(); err != nil {
		return fmt.Errorf("close trace file: %w", err)
	}
	return nil
}

// DeleteTrace removes a model's trace file. A missing trace is not an
// error.
func DeleteTrace(baseDir, modelID string) error {
	err := os.Remove(tracePath(baseDir, modelID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete trace file: %w", err)
	}
	return nil
}
