// Package ttml contains a TTML document writer.
package ttml

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bluenviron/ttmlfrag/internal/rational"
	"github.com/bluenviron/ttmlfrag/internal/squash"
)

// TimeBase is the clock of document timestamps.
var TimeBase = rational.TimeBase{Num: 1, Den: 1000}

// EmptyDocument is the document returned when no packets are written.
const EmptyDocument = `<tt xml:lang="" xmlns="http://www.w3.org/ns/ttml" />`

// ErrDocumentTooLarge is returned when a document exceeds the maximum size.
var ErrDocumentTooLarge = errors.New("document is too large")

const header = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
	"<tt\n" +
	"  xmlns=\"http://www.w3.org/ns/ttml\"\n" +
	"  xmlns:ttm=\"http://www.w3.org/ns/ttml#metadata\"\n" +
	"  xmlns:tts=\"http://www.w3.org/ns/ttml#styling\"\n" +
	"  xml:lang=\"%s\">\n" +
	"  <body>\n" +
	"    <div>\n"

const footer = "    </div>\n" +
	"  </body>\n" +
	"</tt>\n"

func writeTime(buf *bytes.Buffer, tag string, ms int64) {
	sec := ms / 1000
	ms -= sec * 1000
	minutes := sec / 60
	sec -= minutes * 60
	hours := minutes / 60
	minutes -= hours * 60

	fmt.Fprintf(buf, "%s=\"%02d:%02d:%02d.%03d\"", tag, hours, minutes, sec, ms)
}

// Encoder creates TTML documents.
type Encoder struct {
	// maximum size of a document in bytes. Zero means unlimited.
	MaxSize int
}

// TimeBase implements squash.DocumentEncoder.
func (e *Encoder) TimeBase() rational.TimeBase {
	return TimeBase
}

// NewDocument implements squash.DocumentEncoder.
func (e *Encoder) NewDocument(desc squash.StreamDescriptor) (squash.Document, error) {
	return &document{
		maxSize:  e.MaxSize,
		language: desc.Language,
	}, nil
}

type document struct {
	maxSize  int
	language string

	buf           bytes.Buffer
	headerWritten bool
}

func (d *document) checkSize() error {
	if d.maxSize != 0 && d.buf.Len() > d.maxSize {
		return fmt.Errorf("%w: %d > %d", ErrDocumentTooLarge, d.buf.Len(), d.maxSize)
	}
	return nil
}

// WritePacket implements squash.Document.
func (d *document) WritePacket(pkt *squash.Packet) error {
	if !d.headerWritten {
		fmt.Fprintf(&d.buf, header, d.language)
		d.headerWritten = true
	}

	d.buf.WriteString("      <p\n")
	writeTime(&d.buf, "        begin", pkt.PTS)
	d.buf.WriteString("\n")
	writeTime(&d.buf, "        end", pkt.PTS+pkt.Duration)
	d.buf.WriteString(">")
	d.buf.Write(pkt.Payload)
	d.buf.WriteString("</p>\n")

	return d.checkSize()
}

// Close implements squash.Document.
func (d *document) Close() ([]byte, error) {
	if !d.headerWritten {
		return []byte(EmptyDocument), nil
	}

	d.buf.WriteString(footer)

	err := d.checkSize()
	if err != nil {
		return nil, err
	}

	return d.buf.Bytes(), nil
}
