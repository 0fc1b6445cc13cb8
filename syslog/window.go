// Package syslog writes measurement markers to the system log and reads back
// the lines logged after them.
package syslog

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// DefaultLogPath is where rsyslog writes kernel and user messages on
// Debian-derived systems.
const DefaultLogPath = "/var/log/syslog"

var (
	// ErrLogUnavailable is returned when the system log cannot be opened or read.
	ErrLogUnavailable = errors.New("system log unavailable")
	// ErrMarkerNotFound is returned when the start marker does not appear
	// before EOF or before the scan budget is spent.
	ErrMarkerNotFound = errors.New("start marker not found in system log")
)

// Extractor reads windows of the system log that follow a marker line.
type Extractor struct {
	path         string
	maxScanLines int // 0 scans until EOF
}

// NewExtractor creates an Extractor for the log file at path. maxScanLines
// bounds the number of lines examined while looking for a start marker;
// zero means the whole file.
func NewExtractor(path string, maxScanLines int) *Extractor {
	if path == "" {
		path = DefaultLogPath
	}
	if maxScanLines < 0 {
		maxScanLines = 0
	}
	return &Extractor{path: path, maxScanLines: maxScanLines}
}

// Path returns the log file the extractor reads.
func (e *Extractor) Path() string {
	return e.path
}

// Window returns every line logged after the first line containing
// startMarker, in file order. The end marker is not used to cut the window;
// callers locate it themselves.
//
// Lines that are not valid UTF-8 are skipped while searching for the marker.
// After the marker they are kept with the invalid bytes replaced so that line
// adjacency is preserved.
func (e *Extractor) Window(startMarker string) ([]string, error) {
	if startMarker == "" {
		return nil, errors.New("start marker cannot be empty")
	}

	f, err := os.Open(e.path)
	if err != nil {
		return nil, errors.Wrapf(ErrLogUnavailable, "%s: %v", e.path, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)

	scanned := 0
	for {
		if e.maxScanLines > 0 && scanned >= e.maxScanLines {
			return nil, errors.Wrapf(ErrMarkerNotFound, "%q not within first %d lines of %s", startMarker, e.maxScanLines, e.path)
		}
		line, err := readLine(reader)
		if err == io.EOF {
			return nil, errors.Wrapf(ErrMarkerNotFound, "%q in %s", startMarker, e.path)
		} else if err != nil {
			return nil, errors.Wrapf(ErrLogUnavailable, "reading %s: %v", e.path, err)
		}
		scanned++

		if !utf8.ValidString(line) {
			continue
		}
		if strings.Contains(line, startMarker) {
			break
		}
	}

	var window []string
	for {
		line, err := readLine(reader)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(ErrLogUnavailable, "reading %s: %v", e.path, err)
		}
		window = append(window, strings.ToValidUTF8(line, "�"))
	}
	return window, nil
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned as-is; io.EOF is only returned once no data
// is left.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", io.EOF
		}
		// Possible partial write by syslogd. Return what we have.
		err = nil
	} else if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
