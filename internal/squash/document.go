package squash

import (
	"github.com/bluenviron/ttmlfrag/internal/rational"
)

// StreamDescriptor describes the track a document belongs to.
type StreamDescriptor struct {
	Language string
	TimeBase rational.TimeBase
}

// Document collects packets into a single self-contained document.
type Document interface {
	// WritePacket writes a packet whose timestamps are expressed in the document time base.
	WritePacket(*Packet) error

	// Close returns the document bytes.
	// A document without packets returns an empty document.
	Close() ([]byte, error)
}

// DocumentEncoder creates documents.
type DocumentEncoder interface {
	TimeBase() rational.TimeBase
	NewDocument(StreamDescriptor) (Document, error)
}
