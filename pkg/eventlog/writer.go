// Package eventlog persists every accepted agent message as JSONL with daily
// file rotation, giving sessions a replayable audit trail.
package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"interviewcoach/pkg/proto"
)

// Writer appends agent messages to daily rotated JSONL files.
type Writer struct {
	logDir      string
	mu          sync.Mutex
	currentFile *os.File
	currentDate string
}

// NewWriter creates a writer rooted at logDir, creating the directory if
// needed.
func NewWriter(logDir string) (*Writer, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	w := &Writer{logDir: logDir}
	if err := w.rotateIfNeeded(time.Now()); err != nil {
		return nil, fmt.Errorf("initialize log file: %w", err)
	}
	return w, nil
}

// Record implements comms.Recorder. Write failures are reported through the
// error return of WriteMessage; Record swallows them so a full disk cannot
// break message delivery.
func (w *Writer) Record(msg *proto.AgentMessage) {
	_ = w.WriteMessage(msg)
}

// WriteMessage appends one message to the current day's file, rotating first
// when the date has changed.
func (w *Writer) WriteMessage(msg *proto.AgentMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(time.Now()); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}

	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}

	if _, err := w.currentFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.currentFile.Sync(); err != nil {
		return fmt.Errorf("sync log file: %w", err)
	}
	return nil
}

// CurrentLogFile returns the path of the active log file.
func (w *Writer) CurrentLogFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile == nil {
		return ""
	}
	return w.pathFor(w.currentDate)
}

// Close releases the active file handle.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile == nil {
		return nil
	}
	err := w.currentFile.Close()
	w.currentFile = nil
	if err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

func (w *Writer) rotateIfNeeded(now time.Time) error {
	date := now.Format("2006-01-02")
	if w.currentFile != nil && w.currentDate == date {
		return nil
	}

	if w.currentFile != nil {
		if err := w.currentFile.Close(); err != nil {
			return fmt.Errorf("close previous log file: %w", err)
		}
	}

	file, err := os.OpenFile(w.pathFor(date), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	w.currentFile = file
	w.currentDate = date
	return nil
}

func (w *Writer) pathFor(date string) string {
	return filepath.Join(w.logDir, fmt.Sprintf("events-%s.jsonl", date))
}

// ReadMessages parses every message in a log file.
func ReadMessages(path string) ([]*proto.AgentMessage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var messages []*proto.AgentMessage
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := proto.FromJSON(line)
		if err != nil {
			return nil, fmt.Errorf("parse message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file: %w", err)
	}
	return messages, nil
}

// ListLogFiles returns all event log files under logDir.
func ListLogFiles(logDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(logDir, "events-*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("list log files: %w", err)
	}
	return files, nil
}
