package normalize

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestNormalizer builds a Normalizer with default settings and a silent logger.
func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return n
}

// =========================================================================
// DISPATCH
// =========================================================================

func TestNormalize_Dispatch(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name       string
		in         Input
		wantFormat Format
		want       string
	}{
		{
			name:       "html wins over text",
			in:         Input{HTML: "<h2>Setup</h2>", Text: "h1. ignored"},
			wantFormat: FormatHTML,
			want:       "## Setup",
		},
		{
			name:       "wiki text",
			in:         Input{Text: "h2. Setup Guide"},
			wantFormat: FormatWiki,
			want:       "## Setup Guide",
		},
		{
			name:       "blank html falls through to text",
			in:         Input{HTML: "  \n", Text: "* item"},
			wantFormat: FormatWiki,
			want:       "* item",
		},
		{
			name:       "plain text passes through unchanged",
			in:         Input{Text: "just   some\n    indented text"},
			wantFormat: FormatPlain,
			want:       "just   some\n    indented text",
		},
		{
			name:       "empty input",
			in:         Input{},
			wantFormat: FormatPlain,
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.in)
			assert.Equal(t, tt.wantFormat, got.Format)
			assert.Equal(t, tt.want, got.Markdown)
		})
	}
}

func TestLooksLikeWiki(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"h1. Title", true},
		{"intro\nh3. Later heading", false},
		{"prose first\n* stray bullet", false},
		{"prose first\n{code}x{code}", true},
		{"* bullet", true},
		{"||Name||Age||", true},
		{"see {code}x{code}", true},
		{"h7. not a heading", false},
		{"*bold* in a sentence", false},
		{"plain prose", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeWiki(tt.text))
		})
	}
}

func TestNew_RejectsInlineLengthOutOfRange(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, length := range []int{0, 149, 201} {
		cfg := DefaultConfig()
		cfg.InlineCodeMaxLength = length
		_, err := New(cfg, logger)
		assert.Error(t, err, "length %d", length)
	}
}

// =========================================================================
// DEGRADATION
// =========================================================================

func TestHTML_PanicUsesFallbackConverter(t *testing.T) {
	n := newTestNormalizer(t)
	n.convertHTML = func(string) (string, error) { panic("boom") }
	n.fallback = func(string) (string, error) { return "  fallback output\n", nil }

	assert.Equal(t, "fallback output", n.HTML("<p>x</p>"))
}

func TestHTML_ConversionErrorUsesFallbackConverter(t *testing.T) {
	n := newTestNormalizer(t)
	n.convertHTML = func(string) (string, error) { return "", errors.New("render failed") }
	n.fallback = func(string) (string, error) { return "fallback output", nil }

	assert.Equal(t, "fallback output", n.HTML("<p>x</p>"))
}

func TestHTML_FallbackFailureReturnsInput(t *testing.T) {
	n := newTestNormalizer(t)
	n.convertHTML = func(string) (string, error) { panic("boom") }
	n.fallback = func(string) (string, error) { return "", errors.New("unsupported") }

	assert.Equal(t, "<p>x</p>", n.HTML("<p>x</p>"))
}

func TestHTML_FallbackPanicReturnsInput(t *testing.T) {
	n := newTestNormalizer(t)
	n.convertHTML = func(string) (string, error) { panic("boom") }
	n.fallback = func(string) (string, error) { panic("again") }

	assert.Equal(t, "<b>x</b>", n.HTML("<b>x</b>"))
}

func TestHTML_RealFallbackConverter(t *testing.T) {
	n := newTestNormalizer(t)
	n.convertHTML = func(string) (string, error) { panic("boom") }

	got := n.HTML("<p>Hello <strong>world</strong></p>")
	assert.Contains(t, got, "Hello")
	assert.Contains(t, got, "world")
	assert.NotContains(t, got, "<p>")
}

func TestHTML_FallbackConverterWritesPipeTables(t *testing.T) {
	n := newTestNormalizer(t)
	n.convertHTML = func(string) (string, error) { panic("boom") }

	got := n.HTML("<table><tr><th>Name</th></tr><tr><td>Ada</td></tr></table>")
	assert.Contains(t, got, "| Name |")
	assert.Contains(t, got, "| Ada |")
	assert.NotContains(t, got, "<table")
}

// =========================================================================
// PROPERTIES
// =========================================================================

func TestNormalize_Properties(t *testing.T) {
	n := newTestNormalizer(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("plain text without wiki markers is returned unchanged", prop.ForAll(
		func(words []string) bool {
			text := strings.Join(words, " ")
			got := n.Normalize(Input{Text: text})
			return got.Format == FormatPlain && got.Markdown == text
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("short single-line code is inline", prop.ForAll(
		func(code string) bool {
			got := n.HTML("<pre>" + code + "</pre>")
			return got == "`"+code+"`"
		},
		gen.Identifier().SuchThat(func(s string) bool { return len(s) < 160 }),
	))

	properties.Property("html conversion never panics", prop.ForAll(
		func(src string) bool {
			n.HTML(src)
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
