package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventRecordAccess EventType = "RECORD_ACCESS"
	EventRecordCreate EventType = "RECORD_CREATE"
	EventRecordUpdate EventType = "RECORD_UPDATE"
	EventRecordDelete EventType = "RECORD_DELETE"
	EventRecordSearch EventType = "RECORD_SEARCH"
	EventAppAccess    EventType = "APP_ACCESS"

	EventStartup  EventType = "STARTUP"
	EventShutdown EventType = "SHUTDOWN"
	EventError    EventType = "ERROR"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	Severity  Severity               `json:"severity"`
	Source    string                 `json:"source"`
	Resource  string                 `json:"resource,omitempty"`
	Action    string                 `json:"action"`
	Result    string                 `json:"result"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Config holds logger settings.
type Config struct {
	FilePath string
	MaxSize  int64 // rotate when the file exceeds this many bytes, 0 disables
}

// Logger writes JSONL audit events. Events are handed to a background
// goroutine so the request path never blocks on disk.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	filepath string
	maxSize  int64
	encoder  *json.Encoder
	events   chan *Event
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewLogger opens the log file and starts the background writer.
func NewLogger(config Config) (*Logger, error) {
	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	l := &Logger{
		file:     file,
		filepath: config.FilePath,
		maxSize:  config.MaxSize,
		encoder:  json.NewEncoder(file),
		events:   make(chan *Event, 100),
		stop:     make(chan struct{}),
	}

	l.wg.Add(1)
	go l.worker()

	l.LogSystem(EventStartup, "audit logger started", nil)
	return l, nil
}

// Log writes an audit event.
func (l *Logger) Log(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Details = redact(event.Details)

	select {
	case l.events <- event:
	case <-time.After(time.Second):
		fmt.Fprintf(os.Stderr, "audit: dropped event after timeout\n")
	}
}

// LogRecordOperation logs an operation against a record or the app.
func (l *Logger) LogRecordOperation(op EventType, recordID string, success bool, details map[string]interface{}) {
	result := "SUCCESS"
	severity := SeverityInfo
	if !success {
		result = "FAILED"
		severity = SeverityError
	}
	l.Log(&Event{
		Type:     op,
		Severity: severity,
		Source:   "kintone",
		Resource: recordID,
		Action:   string(op),
		Result:   result,
		Details:  details,
	})
}

// LogError logs an error event.
func (l *Logger) LogError(source string, err error, details map[string]interface{}) {
	l.Log(&Event{
		Type:     EventError,
		Severity: SeverityError,
		Source:   source,
		Action:   "error",
		Result:   "ERROR",
		Error:    err.Error(),
		Details:  details,
	})
}

// LogSystem logs a system event.
func (l *Logger) LogSystem(eventType EventType, message string, details map[string]interface{}) {
	l.Log(&Event{
		Type:     eventType,
		Severity: SeverityInfo,
		Source:   "system",
		Action:   string(eventType),
		Result:   message,
		Details:  details,
	})
}

func (l *Logger) worker() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.events:
			l.writeEvent(event)
		case <-l.stop:
			for {
				select {
				case event := <-l.events:
					l.writeEvent(event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.encoder.Encode(event); err != nil {
		fmt.Fprintf(os.Stderr, "audit: failed to write event: %v\n", err)
	}

	if l.maxSize > 0 {
		if info, err := l.file.Stat(); err == nil && info.Size() > l.maxSize {
			l.rotate()
		}
	}
}

func (l *Logger) rotate() {
	_ = l.file.Close()

	timestamp := time.Now().Format("20060102-150405")
	_ = os.Rename(l.filepath, fmt.Sprintf("%s.%s", l.filepath, timestamp))

	file, err := os.OpenFile(l.filepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit: failed to open new log file: %v\n", err)
		return
	}
	l.file = file
	l.encoder = json.NewEncoder(file)
}

// Close drains pending events and closes the log file.
func (l *Logger) Close() error {
	l.LogSystem(EventShutdown, "audit logger shutting down", nil)

	close(l.stop)
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

var sensitiveKeys = []string{"token", "password", "passphrase", "secret", "credential", "auth"}

// redact drops detail entries whose keys look credential-bearing. The API
// token must never reach the audit trail.
func redact(details map[string]interface{}) map[string]interface{} {
	if details == nil {
		return nil
	}
	out := make(map[string]interface{}, len(details))
	for k, v := range details {
		lower := strings.ToLower(k)
		skip := false
		for _, s := range sensitiveKeys {
			if strings.Contains(lower, s) {
				skip = true
				break
			}
		}
		if !skip {
			out[k] = v
		}
	}
	return out
}
