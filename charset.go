package fileconvert

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText decodes data to UTF-8. An explicit charset hint wins; otherwise
// valid UTF-8 is used as-is and anything else goes through detection.
func decodeText(data []byte, charset string) string {
	if charset != "" {
		if enc := lookupEncoding(charset); enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(bytes.TrimPrefix(decoded, utf8BOM))
			}
		}
	}

	switch {
	case bytes.HasPrefix(data, utf8BOM):
		return string(data[len(utf8BOM):])
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		utf16 := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
		if decoded, err := utf16.NewDecoder().Bytes(data); err == nil {
			return string(decoded)
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}

	return decodeWithDetection(data)
}

// decodeWithDetection tries every charset chardet proposes, best confidence
// first, and keeps the first one that decodes without replacement characters.
func decodeWithDetection(data []byte) string {
	results, err := chardet.NewTextDetector().DetectAll(data)
	if err == nil {
		var fallback string
		for _, r := range results {
			enc := lookupEncoding(r.Charset)
			if enc == nil {
				continue
			}
			decoded, err := enc.NewDecoder().Bytes(data)
			if err != nil {
				continue
			}
			s := string(decoded)
			if !strings.ContainsRune(s, utf8.RuneError) {
				return s
			}
			if fallback == "" {
				fallback = s
			}
		}
		if fallback != "" {
			return fallback
		}
	}

	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// lookupEncoding maps a charset label (WHATWG or IANA) to an encoding.
func lookupEncoding(charset string) encoding.Encoding {
	label := strings.ToLower(strings.TrimSpace(charset))
	switch label {
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case "cp932", "windows-31j":
		label = "shift_jis"
	case "cp949":
		label = "euc-kr"
	case "cp936":
		label = "gbk"
	case "cp950":
		label = "big5"
	case "gb-18030":
		label = "gb18030"
	}
	if enc, err := htmlindex.Get(label); err == nil {
		return enc
	}
	if enc, err := ianaindex.IANA.Encoding(label); err == nil && enc != nil {
		return enc
	}
	return nil
}
