package sse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Decoder reads Server-Sent Events and yields event payloads (the joined
// "data:" lines) as raw bytes, plus the optional "event:" name. It is
// intentionally minimal: enough for OpenAI-style data-only streams and for
// Anthropic's named message events.
type Decoder struct {
	r     *bufio.Reader
	buf   bytes.Buffer
	event string
	err   error
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next advances to the next event. It returns false on EOF or error. After a
// successful Next, Data returns the raw event payload (without the trailing
// newline) and Event the last "event:" field seen in the block, if any.
func (d *Decoder) Next() bool {
	if d.err != nil {
		return false
	}
	d.buf.Reset()
	d.event = ""

	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && d.buf.Len() > 0 {
				d.err = io.EOF
				return true
			}
			d.err = err
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			// event boundary
			return true
		}

		if strings.HasPrefix(line, ":") {
			continue
		}
		if v, ok := fieldValue(line, "event:"); ok {
			d.event = v
			continue
		}
		v, ok := fieldValue(line, "data:")
		if !ok {
			continue
		}
		if d.buf.Len() > 0 {
			d.buf.WriteByte('\n')
		}
		d.buf.WriteString(v)
	}
}

func fieldValue(line, field string) (string, bool) {
	if !strings.HasPrefix(line, field) {
		return "", false
	}
	v := strings.TrimPrefix(line, field)
	v = strings.TrimPrefix(v, " ")
	return v, true
}

func (d *Decoder) Data() []byte {
	if d == nil {
		return nil
	}
	return d.buf.Bytes()
}

func (d *Decoder) Event() string {
	if d == nil {
		return ""
	}
	return d.event
}

func (d *Decoder) Err() error {
	if d == nil {
		return nil
	}
	if d.err == io.EOF {
		return nil
	}
	return d.err
}

func (d *Decoder) ExpectNoError() error {
	if err := d.Err(); err != nil {
		return fmt.Errorf("sse decode: %w", err)
	}
	return nil
}
