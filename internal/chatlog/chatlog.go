// Package chatlog records chat activity to a CSV file and serves
// aggregate views of it for the log endpoints.
package chatlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

var csvHeaders = []string{
	"timestamp", "session_id", "message_type", "user_message", "assistant_response",
	"response_time_ms", "message_length", "voice_generated", "voice_name",
	"error_message", "client_agent", "processing_status",
}

// Entry is one logged chat event.
type Entry struct {
	Timestamp         time.Time
	SessionID         string
	MessageType       string // "chat", "voice_message" or "voice_request"
	UserMessage       string
	AssistantResponse string
	ResponseTimeMs    int64
	MessageLength     int
	VoiceGenerated    bool
	VoiceName         string
	ErrorMessage      string
	ClientAgent       string
	ProcessingStatus  string // "success" or "error"
}

// Summary aggregates the log file for the /logs/summary endpoint.
type Summary struct {
	TotalMessages         int     `json:"total_messages"`
	UniqueSessions        int     `json:"unique_sessions"`
	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
	VoiceRequests         int     `json:"voice_requests"`
	Errors                int     `json:"errors"`
	SuccessRate           float64 `json:"success_rate"`
}

// Logger appends chat activity to a CSV file. Writes are serialized
// with a mutex; reads re-parse the file so they always reflect what is
// on disk.
type Logger struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// New creates a chat logger backed by the CSV file at path, creating
// the file with a header row if it does not exist yet.
func New(path string, logger *zap.Logger) (*Logger, error) {
	l := &Logger{path: path, logger: logger}
	if err := l.ensureFile(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) ensureFile() error {
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write log header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Path returns the absolute path of the log file.
func (l *Logger) Path() string {
	abs, err := filepath.Abs(l.path)
	if err != nil {
		return l.path
	}
	return abs
}

// Append writes one entry to the log file. Logging failures are
// reported to the caller but never block the chat flow; callers log
// and move on.
func (l *Logger) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.SessionID == "" {
		e.SessionID = "unknown"
	}
	if e.MessageType == "" {
		e.MessageType = "chat"
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	record := []string{
		e.Timestamp.Format(time.RFC3339),
		e.SessionID,
		e.MessageType,
		e.UserMessage,
		e.AssistantResponse,
		strconv.FormatInt(e.ResponseTimeMs, 10),
		strconv.Itoa(e.MessageLength),
		strconv.FormatBool(e.VoiceGenerated),
		e.VoiceName,
		e.ErrorMessage,
		e.ClientAgent,
		e.ProcessingStatus,
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Recent returns up to limit entries, newest first.
func (l *Logger) Recent(limit int) ([]Entry, error) {
	entries, err := l.readAll()
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	// Newest first for display.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Summarize aggregates message counts, latency, and success rate.
func (l *Logger) Summarize() (Summary, error) {
	entries, err := l.readAll()
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	var totalResponseTime int64
	sessions := make(map[string]struct{})

	for _, e := range entries {
		summary.TotalMessages++
		totalResponseTime += e.ResponseTimeMs
		sessions[e.SessionID] = struct{}{}
		if e.VoiceGenerated {
			summary.VoiceRequests++
		}
		if e.ProcessingStatus == "error" {
			summary.Errors++
		}
	}

	summary.UniqueSessions = len(sessions)
	if summary.TotalMessages > 0 {
		summary.AverageResponseTimeMs = float64(totalResponseTime) / float64(summary.TotalMessages)
		summary.SuccessRate = float64(summary.TotalMessages-summary.Errors) / float64(summary.TotalMessages) * 100
	}
	return summary, nil
}

// Clear truncates the log file back to its header row.
func (l *Logger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("failed to truncate log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to rewrite log header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Export returns the raw CSV contents for download.
func (l *Logger) Export() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return data, nil
}

func (l *Logger) readAll() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse log file: %w", err)
	}

	var entries []Entry
	for i, rec := range records {
		if i == 0 || len(rec) < len(csvHeaders) {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			l.logger.Warn("Skipping log row with bad timestamp", zap.Int("row", i))
			continue
		}
		responseTime, _ := strconv.ParseInt(rec[5], 10, 64)
		length, _ := strconv.Atoi(rec[6])
		voiceGenerated, _ := strconv.ParseBool(rec[7])
		entries = append(entries, Entry{
			Timestamp:         ts,
			SessionID:         rec[1],
			MessageType:       rec[2],
			UserMessage:       rec[3],
			AssistantResponse: rec[4],
			ResponseTimeMs:    responseTime,
			MessageLength:     length,
			VoiceGenerated:    voiceGenerated,
			VoiceName:         rec[8],
			ErrorMessage:      rec[9],
			ClientAgent:       rec[10],
			ProcessingStatus:  rec[11],
		})
	}
	return entries, nil
}
