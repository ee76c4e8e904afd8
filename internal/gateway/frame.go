package gateway

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// frame is a STOMP 1.2 frame.
type frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

var errHeartbeat = errors.New("heartbeat")

var (
	headerEscaper   = strings.NewReplacer("\\", "\\\\", "\r", "\\r", "\n", "\\n", ":", "\\c")
	headerUnescaper = strings.NewReplacer("\\\\", "\\", "\\r", "\r", "\\n", "\n", "\\c", ":")
)

func (f frame) encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	keys := make([]string, 0, len(f.Headers))
	for k := range f.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		value := f.Headers[k]
		if f.Command != "CONNECT" && f.Command != "CONNECTED" {
			k, value = headerEscaper.Replace(k), headerEscaper.Replace(value)
		}
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// decodeFrame parses one frame. A message made only of EOLs is a heart-beat.
func decodeFrame(raw []byte) (frame, error) {
	raw = bytes.TrimLeft(raw, "\r\n")
	if len(raw) == 0 {
		return frame{}, errHeartbeat
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}

	sep := []byte("\n\n")
	headEnd := bytes.Index(raw, sep)
	if headEnd < 0 {
		sep = []byte("\r\n\r\n")
		headEnd = bytes.Index(raw, sep)
	}
	var head, body []byte
	if headEnd < 0 {
		head = raw
	} else {
		head, body = raw[:headEnd], raw[headEnd+len(sep):]
	}

	lines := strings.Split(strings.ReplaceAll(string(head), "\r\n", "\n"), "\n")
	f := frame{Command: strings.TrimSpace(lines[0]), Headers: make(map[string]string), Body: body}
	if f.Command == "" {
		return frame{}, errors.New("stomp: empty command")
	}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return frame{}, fmt.Errorf("stomp: malformed header %q", line)
		}
		k = headerUnescaper.Replace(k)
		// Repeated headers: the first occurrence wins.
		if _, seen := f.Headers[k]; !seen {
			f.Headers[k] = headerUnescaper.Replace(v)
		}
	}
	return f, nil
}
