package syslog

import (
	gosyslog "log/syslog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultTag is the program tag attached to marker messages.
const DefaultTag = "op-fwts"

// MarkerWriter writes measurement markers into the system log.
type MarkerWriter interface {
	WriteMarker(marker string) error
}

// FormatMarkerLine returns the message logged for marker at now:
// the marker framed by "---" followed by the fractional unix time.
func FormatMarkerLine(marker string, now time.Time) string {
	secs := float64(now.UnixNano()) / float64(time.Second)
	return "---" + marker + "---" + strconv.FormatFloat(secs, 'f', 6, 64)
}

// SyslogWriter sends markers to the local syslog daemon at LOG_INFO.
type SyslogWriter struct {
	w   *gosyslog.Writer
	now func() time.Time
}

var _ MarkerWriter = (*SyslogWriter)(nil)

// NewSyslogWriter connects to the local syslog daemon.
func NewSyslogWriter(tag string) (*SyslogWriter, error) {
	if tag == "" {
		tag = DefaultTag
	}
	w, err := gosyslog.New(gosyslog.LOG_INFO|gosyslog.LOG_USER, tag)
	if err != nil {
		return nil, errors.Wrapf(ErrLogUnavailable, "connecting to syslog: %v", err)
	}
	return &SyslogWriter{w: w, now: time.Now}, nil
}

// WriteMarker implements MarkerWriter.
func (s *SyslogWriter) WriteMarker(marker string) error {
	if err := s.w.Info(FormatMarkerLine(marker, s.now())); err != nil {
		return errors.Wrap(err, "writing marker to syslog")
	}
	return nil
}

// Close closes the connection to the syslog daemon.
func (s *SyslogWriter) Close() error {
	return s.w.Close()
}

// FileWriter appends markers directly to a log file. It is used when the
// measured log is a plain file that no syslog daemon feeds, for example a
// kernel log captured by a test harness.
type FileWriter struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

var _ MarkerWriter = (*FileWriter)(nil)

// NewFileWriter creates a FileWriter appending to path.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path, now: time.Now}
}

// WriteMarker implements MarkerWriter.
func (w *FileWriter) WriteMarker(marker string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(ErrLogUnavailable, "%s: %v", w.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatMarkerLine(marker, w.now()) + "\n"); err != nil {
		return errors.Wrapf(err, "appending marker to %s", w.path)
	}
	return nil
}
