// Package textcodec converts between stored bytes and document text for a
// named encoding, using golang.org/x/text.
package textcodec

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Codec converts between stored bytes and document text for one encoding.
type Codec struct {
	name string
	enc  encoding.Encoding // nil for plain UTF-8
	bom  bool
}

// Lookup resolves an encoding name. Besides the WHATWG labels known to
// htmlindex it accepts the short forms "utf8", "utf8bom", "utf16le" and "utf16be".
func Lookup(name string) (Codec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "", "utf8", "utf-8":
		return Codec{name: "utf8"}, nil
	case "utf8bom":
		return Codec{name: key, bom: true}, nil
	case "utf16le":
		return Codec{name: key, enc: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)}, nil
	case "utf16be":
		return Codec{name: key, enc: unicode.UTF16(unicode.BigEndian, unicode.UseBOM)}, nil
	}

	enc, err := htmlindex.Get(key)
	if err != nil {
		return Codec{}, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return Codec{name: key, enc: enc}, nil
}

// Decode converts stored bytes to text.
func (c Codec) Decode(raw []byte) (string, error) {
	if c.enc == nil {
		if c.bom {
			return string(bytes.TrimPrefix(raw, utf8BOM)), nil
		}
		return string(raw), nil
	}
	out, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", c.name, err)
	}
	return string(out), nil
}

// Encode converts text to stored bytes.
func (c Codec) Encode(text string) ([]byte, error) {
	if c.enc == nil {
		if c.bom {
			return append(append([]byte(nil), utf8BOM...), text...), nil
		}
		return []byte(text), nil
	}
	out, err := c.enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", c.name, err)
	}
	return out, nil
}

// Name returns the normalised encoding name.
func (c Codec) Name() string {
	return c.name
}
