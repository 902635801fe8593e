package logger

import (
	"bytes"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

type destinationStdout struct {
	structured bool
	useColor   bool
	out        io.Writer
	buf        bytes.Buffer
}

func newDestionationStdout(structured bool, out io.Writer) destination {
	useColor := false
	if out == nil {
		out = os.Stdout
		useColor = term.IsTerminal(int(os.Stdout.Fd()))
	}

	return &destinationStdout{
		structured: structured,
		useColor:   useColor && !structured,
		out:        out,
	}
}

func (d *destinationStdout) log(t time.Time, level Level, format string, args ...interface{}) {
	d.buf.Reset()
	if d.structured {
		writeStructured(&d.buf, t, level, format, args)
	} else {
		writeTime(&d.buf, t, d.useColor)
		writeLevel(&d.buf, level, d.useColor)
		writeContent(&d.buf, format, args)
	}
	d.out.Write(d.buf.Bytes()) //nolint:errcheck
}

func (d *destinationStdout) close() {
}
