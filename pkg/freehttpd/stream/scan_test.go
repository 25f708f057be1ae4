package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onesoft-sudo/freehttpd/pkg/freehttpd/memory"
)

func TestScanDelimSingleLink(t *testing.T) {
	a := memory.New()
	s := &Stream{}
	s.AppendData(a, []byte("GET /x HTTP/1.1"), 0)

	tok, found, overlong := ScanDelim(a, NewCursor(s), ' ', 16)
	require.True(t, found)
	assert.False(t, overlong)
	assert.False(t, tok.Linearised)
	assert.Equal(t, "GET", string(tok.Bytes))
}

func TestScanDelimAcrossLinks(t *testing.T) {
	a := memory.New()
	s := &Stream{}
	s.AppendData(a, []byte("GE"), 0)
	s.AppendData(a, []byte("T "), 0)
	s.AppendData(a, []byte("/x"), 0)

	tok, found, _ := ScanDelim(a, NewCursor(s), ' ', 16)
	require.True(t, found)
	assert.True(t, tok.Linearised)
	assert.Equal(t, "GET", string(tok.Bytes))
}

func TestScanDelimNeedsMoreBytes(t *testing.T) {
	a := memory.New()
	s := &Stream{}
	s.AppendData(a, []byte("GET"), 0)

	_, found, overlong := ScanDelim(a, NewCursor(s), ' ', 16)
	assert.False(t, found)
	assert.False(t, overlong)
}

func TestScanDelimOverlong(t *testing.T) {
	a := memory.New()
	s := &Stream{}
	s.AppendData(a, []byte("ABCDEFGHIJKLMNOPQ "), 0)

	_, found, overlong := ScanDelim(a, NewCursor(s), ' ', 4)
	assert.False(t, found)
	assert.True(t, overlong)
}

func TestScanDelimCRLFStraddlingLinkBoundary(t *testing.T) {
	a := memory.New()
	s := &Stream{}
	s.AppendData(a, []byte("HTTP/1.1\r"), 0)
	s.AppendData(a, []byte("\nHost: x\r\n"), 0)

	tok, found, _ := ScanDelimCRLF(a, NewCursor(s), 16)
	require.True(t, found)
	assert.Equal(t, "HTTP/1.1", string(tok.Bytes))

	next, found2, _ := ScanDelimCRLF(a, tok.End, 256)
	require.True(t, found2)
	assert.Equal(t, "Host: x", string(next.Bytes))
}

func TestPeekByteAcrossLinks(t *testing.T) {
	a := memory.New()
	s := &Stream{}
	s.AppendData(a, []byte{}, 0)
	s.AppendData(a, []byte("X"), 0)

	b, ok := PeekByte(NewCursor(s))
	require.True(t, ok)
	assert.Equal(t, byte('X'), b)
}

func TestPeekByteNeedsMoreWhenExhausted(t *testing.T) {
	a := memory.New()
	s := &Stream{}
	s.AppendData(a, []byte("abc"), 0)
	c := NewCursor(s).Advance(3)

	_, ok := PeekByte(c)
	assert.False(t, ok)
}

func TestCursorAdvanceBytesAcrossLinks(t *testing.T) {
	a := memory.New()
	s := &Stream{}
	s.AppendData(a, []byte("hel"), 0)
	s.AppendData(a, []byte("lo"), 0)

	consumed, next, exhausted := NewCursor(s).AdvanceBytes(5)
	assert.Equal(t, int64(5), consumed)
	assert.False(t, exhausted)
	assert.True(t, next.AtEnd())
}

func TestCursorAdvanceBytesExhaustsEarly(t *testing.T) {
	a := memory.New()
	s := &Stream{}
	s.AppendData(a, []byte("hi"), 0)

	consumed, _, exhausted := NewCursor(s).AdvanceBytes(10)
	assert.Equal(t, int64(2), consumed)
	assert.True(t, exhausted)
}
