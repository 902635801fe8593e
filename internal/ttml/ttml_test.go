package ttml

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/ttmlfrag/internal/squash"
)

func TestDocument(t *testing.T) {
	enc := &Encoder{}

	doc, err := enc.NewDocument(squash.StreamDescriptor{Language: "eng"})
	require.NoError(t, err)

	err = doc.WritePacket(&squash.Packet{DTS: 1500, PTS: 1500, Duration: 2000, Payload: []byte("first")})
	require.NoError(t, err)

	err = doc.WritePacket(&squash.Packet{
		DTS:      3723004,
		PTS:      3723004,
		Duration: 996,
		Payload:  []byte("second<br/>line"),
	})
	require.NoError(t, err)

	byts, err := doc.Close()
	require.NoError(t, err)

	require.Equal(t, "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"+
		"<tt\n"+
		"  xmlns=\"http://www.w3.org/ns/ttml\"\n"+
		"  xmlns:ttm=\"http://www.w3.org/ns/ttml#metadata\"\n"+
		"  xmlns:tts=\"http://www.w3.org/ns/ttml#styling\"\n"+
		"  xml:lang=\"eng\">\n"+
		"  <body>\n"+
		"    <div>\n"+
		"      <p\n"+
		"        begin=\"00:00:01.500\"\n"+
		"        end=\"00:00:03.500\">first</p>\n"+
		"      <p\n"+
		"        begin=\"01:02:03.004\"\n"+
		"        end=\"01:02:04.000\">second<br/>line</p>\n"+
		"    </div>\n"+
		"  </body>\n"+
		"</tt>\n", string(byts))
}

func TestDocumentEmpty(t *testing.T) {
	enc := &Encoder{}

	doc, err := enc.NewDocument(squash.StreamDescriptor{Language: "eng"})
	require.NoError(t, err)

	byts, err := doc.Close()
	require.NoError(t, err)
	require.Equal(t, `<tt xml:lang="" xmlns="http://www.w3.org/ns/ttml" />`, string(byts))
}

func TestDocumentTooLarge(t *testing.T) {
	enc := &Encoder{MaxSize: 300}

	doc, err := enc.NewDocument(squash.StreamDescriptor{Language: "eng"})
	require.NoError(t, err)

	err = doc.WritePacket(&squash.Packet{Duration: 1000, Payload: []byte("a")})
	require.NoError(t, err)

	err = doc.WritePacket(&squash.Packet{Duration: 1000, Payload: make([]byte, 300)})
	require.ErrorIs(t, err, ErrDocumentTooLarge)
}

func TestEscapeText(t *testing.T) {
	for _, ca := range []struct {
		name string
		in   string
		out  string
	}{
		{
			"plain",
			"hello world",
			"hello world",
		},
		{
			"markup",
			"<b>salt & pepper</b>",
			"&lt;b&gt;salt &amp; pepper&lt;/b&gt;",
		},
		{
			"lines",
			"first\nsecond\r\nthird",
			"first<br/>second<br/>third",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.Equal(t, ca.out, string(EscapeText(ca.in)))
		})
	}
}
