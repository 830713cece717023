package fragment

import (
	"bytes"
	"context"
	"encoding/base64"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/bhandras/replbox/pkg/types"
	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"
)

func sampleSession() types.Session {
	opts := types.DefaultBuildOptions()
	opts.Global = "MyLib"
	opts.PublicURL = "/static/"
	opts.Browserslist = "> 0.25%, not dead"
	return types.Session{
		CurrentPreset: "Javascript",
		Files: []types.VirtualFile{
			{Name: "index.js", Content: "import {x} from './other.js';\nconsole.log(x)", IsEntry: true},
			{Name: "other.js", Content: "export const x = 'üñí©ødé';"},
			{Name: "empty.js"},
		},
		Options: opts,
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	s := sampleSession()
	enc, err := Encode(s)
	require.NoError(t, err)
	require.NotContains(t, enc, "+")
	require.NotContains(t, enc, "/")
	require.NotContains(t, enc, "=")

	got := Decode(enc)
	require.NotNil(t, got)
	require.True(t, s.Equal(*got), "got %+v", got)

	// A leading '#' as read from location.hash is tolerated.
	got = Decode("#" + enc)
	require.NotNil(t, got)
	require.True(t, s.Equal(*got))
}

func TestRoundTripRandomSessions(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	platforms := []types.Platform{types.PlatformBrowser, types.PlatformNode, types.PlatformElectron}

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(6)
		files := make([]types.VirtualFile, 0, n)
		for j := 0; j < n; j++ {
			files = append(files, types.VirtualFile{
				Name:    "f" + strconv.Itoa(j) + ".js",
				Content: strings.Repeat(string(rune('a'+rng.Intn(26))), rng.Intn(200)),
				IsEntry: rng.Intn(2) == 0,
			})
		}
		s := types.Session{
			CurrentPreset: "P" + strconv.Itoa(rng.Intn(5)),
			Files:         files,
			Options: types.BuildOptions{
				Minify:       rng.Intn(2) == 0,
				ScopeHoist:   rng.Intn(2) == 0,
				SourceMaps:   rng.Intn(2) == 0,
				ContentHash:  rng.Intn(2) == 0,
				Environment:  []string{"", "es2017", "esnext"}[rng.Intn(3)],
				Platform:     platforms[rng.Intn(len(platforms))],
				PublicURL:    []string{"", "/", "https://cdn.example/"}[rng.Intn(3)],
				Global:       []string{"", "Lib"}[rng.Intn(2)],
				Browserslist: []string{"", "defaults"}[rng.Intn(2)],
			},
		}

		enc, err := Encode(s)
		require.NoError(t, err)
		got := Decode(enc)
		require.NotNil(t, got)
		require.True(t, s.Equal(*got), "iteration %d", i)
	}
}

func TestEncodeIsPureInPersistedFields(t *testing.T) {
	t.Parallel()

	a, err := Encode(sampleSession())
	require.NoError(t, err)
	b, err := Encode(sampleSession())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestEncodeRejectsInvalidSessions(t *testing.T) {
	t.Parallel()

	s := sampleSession()
	s.Files = nil
	_, err := Encode(s)
	require.Error(t, err)

	s = sampleSession()
	s.Files[1].Name = s.Files[0].Name
	_, err = Encode(s)
	require.Error(t, err)

	s = sampleSession()
	s.Options.Platform = "deno"
	_, err = Encode(s)
	require.Error(t, err)
}

func deflated(t *testing.T, version byte, payload []byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteByte(version)
	zw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return base64.RawURLEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	valid, err := Encode(sampleSession())
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"hash only":      "#",
		"not base64":     "!!!***",
		"truncated":      valid[:len(valid)/2],
		"wrong version":  deflated(t, 9, []byte{0x90}),
		"not deflate":    base64.RawURLEncoding.EncodeToString([]byte{formatV1, 0xff, 0xff, 0xff}),
		"not msgpack":    deflated(t, formatV1, []byte("hello world")),
		"empty array":    deflated(t, formatV1, []byte{0x90}),
		"legacy json":    base64.StdEncoding.EncodeToString([]byte(`{"currentPreset":"Javascript"}`)),
		"version only":   base64.RawURLEncoding.EncodeToString([]byte{formatV1}),
		"whitespace":     "   ",
		"garbage suffix": valid + "%%%",
	}
	for name, raw := range cases {
		require.Nil(t, Decode(raw), name)
	}
}

func TestDecodeRejectsInvalidSessionPayload(t *testing.T) {
	t.Parallel()

	// A well-formed payload whose session has duplicate names.
	s := sampleSession()
	enc, err := Encode(s)
	require.NoError(t, err)
	require.NotNil(t, Decode(enc))

	rec := record{
		Preset:  "X",
		Options: optionsRecord{Platform: "browser"},
		Files:   []fileRecord{{Name: "a.js"}, {Name: "a.js"}},
	}
	packed, err := marshalRecord(rec)
	require.NoError(t, err)
	require.Nil(t, Decode(deflated(t, formatV1, packed)))

	rec.Files = nil
	packed, err = marshalRecord(rec)
	require.NoError(t, err)
	require.Nil(t, Decode(deflated(t, formatV1, packed)))
}

func TestMemoryLocation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	loc := NewMemoryLocation("seed")
	got, err := loc.Fragment(ctx)
	require.NoError(t, err)
	require.Equal(t, "seed", got)

	require.NoError(t, loc.SetFragment(ctx, "next"))
	got, err = loc.Fragment(ctx)
	require.NoError(t, err)
	require.Equal(t, "next", got)
	require.Equal(t, 1, loc.Writes())
}
