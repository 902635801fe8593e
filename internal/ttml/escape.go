package ttml

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// EscapeText converts plain text into TTML body markup.
// Line breaks become <br/> elements.
func EscapeText(text string) []byte {
	var buf bytes.Buffer

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if i != 0 {
			buf.WriteString("<br/>")
		}
		xml.EscapeText(&buf, []byte(line)) //nolint:errcheck
	}

	return buf.Bytes()
}
