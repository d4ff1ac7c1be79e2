// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MaxLineSize is the largest single record accepted on the framed path.
const MaxLineSize = 1 << 20

// =============================================================================
// FRAMER
// =============================================================================

// Framer splits arbitrary body reads into complete lines. The trailing
// partial line of each read is held back and prefixed onto the next.
type Framer struct {
	partial []byte
	max     int
}

// NewFramer creates a framer that rejects lines longer than max bytes.
// A max of 0 uses MaxLineSize.
func NewFramer(max int) *Framer {
	if max <= 0 {
		max = MaxLineSize
	}
	return &Framer{max: max}
}

// Feed appends chunk and returns every line it completed, without the
// terminator. It returns ErrLineTooLong once the held-back line exceeds the
// limit.
func (f *Framer) Feed(chunk []byte) ([]string, error) {
	var lines []string
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			f.partial = append(f.partial, chunk...)
			break
		}
		var line []byte
		if len(f.partial) > 0 {
			line = append(f.partial, chunk[:i]...)
			f.partial = f.partial[:0]
		} else {
			line = chunk[:i]
		}
		if len(line) > f.max {
			return lines, ErrLineTooLong
		}
		lines = append(lines, string(bytes.TrimSuffix(line, []byte("\r"))))
		chunk = chunk[i+1:]
	}
	if len(f.partial) > f.max {
		return lines, ErrLineTooLong
	}
	return lines, nil
}

// Flush returns the held-back partial line, if any, and resets the framer.
// Called once the body is exhausted.
func (f *Framer) Flush() string {
	if len(f.partial) == 0 {
		return ""
	}
	line := string(bytes.TrimSuffix(f.partial, []byte("\r")))
	f.partial = nil
	return line
}

// Pending returns the number of held-back bytes.
func (f *Framer) Pending() int {
	return len(f.partial)
}

// =============================================================================
// RECORD PARSING
// =============================================================================

const (
	dataPrefix = "data:"
	doneMarker = "[DONE]"
)

// parseRecord decodes one line. ok is false for lines that carry no record:
// blanks, SSE comments and non-data fields. A data line whose payload is not
// valid JSON yields a KindParse error.
func parseRecord(line string) (rec streamRecord, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, dataPrefix) {
		return rec, false, nil
	}

	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == "" {
		return rec, false, nil
	}
	if payload == doneMarker {
		rec.Done = true
		return rec, true, nil
	}

	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return streamRecord{}, false, parseError("malformed stream record", err)
	}
	return rec, true, nil
}
