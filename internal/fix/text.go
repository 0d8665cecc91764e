package fix

import (
	"bytes"
	"fmt"
)

// span is a half-open byte range [Start, End) within a buffer.
type span struct {
	Start int
	End   int
}

// lineSpan returns the bytes of a 1-based line, without its line terminator.
func lineSpan(buf []byte, line uint32) (span, bool) {
	if line == 0 {
		return span{}, false
	}
	start := 0
	for n := uint32(1); n < line; n++ {
		idx := bytes.IndexByte(buf[start:], '\n')
		if idx < 0 {
			return span{}, false
		}
		start += idx + 1
	}
	if start == len(buf) && line > 1 {
		// Past the final newline there is no line.
		return span{}, false
	}
	end := len(buf)
	if idx := bytes.IndexByte(buf[start:], '\n'); idx >= 0 {
		end = start + idx
	}
	if end > start && buf[end-1] == '\r' {
		end--
	}
	return span{Start: start, End: end}, true
}

// replaceSpan returns a copy of buf with sp replaced by newText. When expect
// is non-empty the current content must equal it.
func replaceSpan(buf []byte, sp span, newText, expect string) ([]byte, error) {
	if sp.Start < 0 || sp.End < sp.Start || sp.End > len(buf) {
		return nil, fmt.Errorf("%w: edit span out of range", ErrMismatch)
	}
	if expect != "" && string(buf[sp.Start:sp.End]) != expect {
		return nil, fmt.Errorf("%w: existing text does not match expected content", ErrMismatch)
	}
	out := make([]byte, 0, len(buf)-(sp.End-sp.Start)+len(newText))
	out = append(out, buf[:sp.Start]...)
	out = append(out, newText...)
	out = append(out, buf[sp.End:]...)
	return out, nil
}

// insertAt returns a copy of buf with text inserted at off.
func insertAt(buf []byte, off int, text string) []byte {
	out, _ := replaceSpan(buf, span{Start: off, End: off}, text, "")
	return out
}

// countLines counts line terminators; a final unterminated line counts too.
func countLines(buf []byte) int {
	n := bytes.Count(buf, []byte{'\n'})
	if len(buf) > 0 && buf[len(buf)-1] != '\n' {
		n++
	}
	return n
}

// lineEnding returns the terminator the buffer already uses.
func lineEnding(buf []byte) string {
	if idx := bytes.IndexByte(buf, '\n'); idx > 0 && buf[idx-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
