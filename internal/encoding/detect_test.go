package encoding_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/MrJamesThe3rd/haulbook/internal/encoding"
)

func readAll(t *testing.T, input []byte) (string, string) {
	t.Helper()

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(got), r.Charset
}

func TestNewUTF8Reader_UTF8Passthrough(t *testing.T) {
	input := "Talão;Peso Líquido (kg)\nT-0042;1.250,5\n"

	got, charset := readAll(t, []byte(input))
	assert.Equal(t, input, got)
	assert.Equal(t, "UTF-8", charset)
}

func TestNewUTF8Reader_Windows1252(t *testing.T) {
	// "Talão;Líquido\n" with ã = 0xE3 and í = 0xED.
	input := []byte{'T', 'a', 'l', 0xE3, 'o', ';', 'L', 0xED, 'q', 'u', 'i', 'd', 'o', '\n'}

	got, charset := readAll(t, input)
	assert.Equal(t, "Talão;Líquido\n", got)
	assert.NotEqual(t, "UTF-8", charset)
}

func TestNewUTF8Reader_UTF8BOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Ticket No;Net Weight (kg)\n")...)

	got, charset := readAll(t, input)
	assert.Equal(t, "Ticket No;Net Weight (kg)\n", got)
	assert.Equal(t, "UTF-8", charset)
}

func TestNewUTF8Reader_UTF16LE(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()

	input, err := enc.Bytes([]byte("Receipt No,Net (kg)\n"))
	require.NoError(t, err)

	got, charset := readAll(t, input)
	assert.Equal(t, "Receipt No,Net (kg)\n", got)
	assert.Equal(t, "UTF-16LE", charset)
}

func TestNewUTF8Reader_RuneSplitAtSniffBoundary(t *testing.T) {
	// Pad so a two-byte rune straddles the 4096-byte sniff window.
	input := strings.Repeat("a", 4095) + "ção\n"

	got, charset := readAll(t, []byte(input))
	assert.Equal(t, input, got)
	assert.Equal(t, "UTF-8", charset)
}

func TestNewUTF8Reader_Empty(t *testing.T) {
	got, _ := readAll(t, nil)
	assert.Empty(t, got)
}
