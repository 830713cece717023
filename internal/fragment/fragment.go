// Package fragment encodes sessions into the compact string carried in a
// share URL's fragment, and decodes them back.
//
// Wire format: base64url (no padding) of a version byte followed by a DEFLATE
// stream of a msgpack array [preset, options, files], where each file is the
// tuple [name, content, isEntry].
package fragment

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/bhandras/replbox/internal/vfs"
	"github.com/bhandras/replbox/pkg/types"
	"github.com/klauspost/compress/flate"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	formatV1 byte = 1

	// maxDecodedSize bounds the inflated payload so a crafted fragment cannot
	// exhaust memory.
	maxDecodedSize = 8 << 20
)

type record struct {
	_msgpack struct{} `msgpack:",as_array"`

	Preset  string
	Options optionsRecord
	Files   []fileRecord
}

type optionsRecord struct {
	_msgpack struct{} `msgpack:",as_array"`

	Minify       bool
	ScopeHoist   bool
	SourceMaps   bool
	ContentHash  bool
	Environment  string
	Platform     string
	PublicURL    string
	Global       string
	Browserslist string
}

type fileRecord struct {
	_msgpack struct{} `msgpack:",as_array"`

	Name    string
	Content string
	IsEntry bool
}

// Validate reports whether s is a session that may be persisted.
func Validate(s types.Session) error {
	if err := vfs.Validate(s.Files); err != nil {
		return err
	}
	if !s.Options.Platform.Valid() {
		return fmt.Errorf("unknown platform %q", s.Options.Platform)
	}
	return nil
}

// Encode serializes the persisted slice of a session. Output depends only on
// the preset name, the options and the files.
func Encode(s types.Session) (string, error) {
	if err := Validate(s); err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	rec := record{
		Preset: s.CurrentPreset,
		Options: optionsRecord{
			Minify:       s.Options.Minify,
			ScopeHoist:   s.Options.ScopeHoist,
			SourceMaps:   s.Options.SourceMaps,
			ContentHash:  s.Options.ContentHash,
			Environment:  s.Options.Environment,
			Platform:     string(s.Options.Platform),
			PublicURL:    s.Options.PublicURL,
			Global:       s.Options.Global,
			Browserslist: s.Options.Browserslist,
		},
		Files: make([]fileRecord, 0, len(s.Files)),
	}
	for _, f := range s.Files {
		rec.Files = append(rec.Files, fileRecord{Name: f.Name, Content: f.Content, IsEntry: f.IsEntry})
	}

	packed, err := marshalRecord(rec)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteByte(formatV1)
	zw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if _, err := zw.Write(packed); err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

func marshalRecord(rec record) ([]byte, error) {
	return msgpack.Marshal(&rec)
}

// Decode parses a fragment produced by Encode. Any malformed input yields nil;
// Decode never returns an error and never panics on bad input.
func Decode(raw string) (s *types.Session) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
		}
	}()
	s, err := decode(raw)
	if err != nil {
		return nil
	}
	return s
}

func decode(raw string) (*types.Session, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "#")
	raw = strings.TrimRight(raw, "=")
	if raw == "" {
		return nil, fmt.Errorf("empty fragment")
	}

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	if len(data) < 2 || data[0] != formatV1 {
		return nil, fmt.Errorf("unsupported fragment format")
	}

	zr := flate.NewReader(bytes.NewReader(data[1:]))
	defer zr.Close()
	packed, err := io.ReadAll(io.LimitReader(zr, maxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(packed) > maxDecodedSize {
		return nil, fmt.Errorf("fragment too large")
	}

	var rec record
	if err := msgpack.Unmarshal(packed, &rec); err != nil {
		return nil, err
	}

	s := types.Session{
		CurrentPreset: rec.Preset,
		Options: types.BuildOptions{
			Minify:       rec.Options.Minify,
			ScopeHoist:   rec.Options.ScopeHoist,
			SourceMaps:   rec.Options.SourceMaps,
			ContentHash:  rec.Options.ContentHash,
			Environment:  rec.Options.Environment,
			Platform:     types.Platform(rec.Options.Platform),
			PublicURL:    rec.Options.PublicURL,
			Global:       rec.Options.Global,
			Browserslist: rec.Options.Browserslist,
		},
		Files: make([]types.VirtualFile, 0, len(rec.Files)),
	}
	for _, f := range rec.Files {
		s.Files = append(s.Files, types.VirtualFile{Name: f.Name, Content: f.Content, IsEntry: f.IsEntry})
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return &s, nil
}
