// Package workspace loads LaTeX projects from disk into search corpora and
// writes edited buffers back with backups.
package workspace

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"offleaf/internal/logger"
	"offleaf/internal/types"
)

// Encoding names a text encoding found on disk.
type Encoding string

const (
	EncodingUTF8    Encoding = "UTF-8"
	EncodingUTF8BOM Encoding = "UTF-8-BOM"
	EncodingUTF16LE Encoding = "UTF-16LE"
	EncodingUTF16BE Encoding = "UTF-16BE"
	EncodingGBK     Encoding = "GBK"
	EncodingUnknown Encoding = "UNKNOWN"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectEncoding guesses the encoding of data from its BOM, then UTF-8
// validity, then GBK.
func DetectEncoding(data []byte) Encoding {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return EncodingUTF8BOM
	case bytes.HasPrefix(data, bomUTF16LE):
		return EncodingUTF16LE
	case bytes.HasPrefix(data, bomUTF16BE):
		return EncodingUTF16BE
	case utf8.Valid(data):
		return EncodingUTF8
	}

	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err == nil && utf8.Valid(decoded) {
		return EncodingGBK
	}
	return EncodingUnknown
}

// Decode converts data to a UTF-8 string and reports the encoding it was in.
func Decode(data []byte) (string, Encoding, error) {
	enc := DetectEncoding(data)

	var (
		out []byte
		err error
	)
	switch enc {
	case EncodingUTF8:
		out = data
	case EncodingUTF8BOM:
		out = data[len(bomUTF8):]
	case EncodingUTF16LE:
		out, err = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
	case EncodingUTF16BE:
		out, err = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(data)
	case EncodingGBK:
		out, err = simplifiedchinese.GBK.NewDecoder().Bytes(data)
	default:
		return "", enc, types.NewAppError(types.ErrEncoding, "unrecognized text encoding", nil)
	}
	if err != nil {
		logger.Error("failed to decode file content", err, logger.String("encoding", string(enc)))
		return "", enc, types.NewAppError(types.ErrEncoding, fmt.Sprintf("failed to decode %s", enc), err)
	}
	return string(out), enc, nil
}

// Encode converts text back to enc, restoring the BOM where enc has one.
func Encode(text string, enc Encoding) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch enc {
	case EncodingUTF8, EncodingUnknown, "":
		return []byte(text), nil
	case EncodingUTF8BOM:
		return append(append([]byte(nil), bomUTF8...), text...), nil
	case EncodingUTF16LE:
		out, err = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case EncodingUTF16BE:
		out, err = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case EncodingGBK:
		out, err = simplifiedchinese.GBK.NewEncoder().Bytes([]byte(text))
	default:
		return nil, types.NewAppError(types.ErrEncoding, fmt.Sprintf("unsupported target encoding: %s", enc), nil)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrEncoding, fmt.Sprintf("failed to encode to %s", enc), err)
	}
	return out, nil
}
