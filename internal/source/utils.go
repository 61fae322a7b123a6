package source

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"fortio.org/safecast"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func removeBOM(content []byte) ([]byte, bool) {
	if bytes.HasPrefix(content, utf8BOM) {
		return content[len(utf8BOM):], true
	}
	return content, false
}

// DecodeUTF8 strips a leading byte-order mark and returns buf as text.
// Malformed UTF-8 is a broken precondition of the caller and panics.
func DecodeUTF8(buf []byte) string {
	buf, _ = removeBOM(buf)
	if !utf8.Valid(buf) {
		panic(fmt.Errorf("source is not valid UTF-8 (%d bytes)", len(buf)))
	}
	return string(buf)
}

func buildLineIndex(text string) []uint32 {
	out := make([]uint32, 0, len(text)/32+1)
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		off, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("line offset overflow: %w", err))
		}
		out = append(out, off)
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// Если LineIdx пустой, то весь файл - одна строка
	if len(lineIdx) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	// бинпоиск: находим наибольший lineIdx[i] < off
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	line := hi // индекс последнего '\n' перед off, -1 если нет

	if line < 0 {
		return LineCol{Line: 1, Col: off + 1}
	}
	startOff := lineIdx[line] + 1
	lineNum, err := safecast.Conv[uint32](line + 2)
	if err != nil {
		panic(fmt.Errorf("line number overflow: %w", err))
	}
	return LineCol{Line: lineNum, Col: off - startOff + 1}
}
