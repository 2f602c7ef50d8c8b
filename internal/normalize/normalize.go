// Package normalize turns pasted or imported rich text into Markdown.
//
// DISPATCH:
// Normalize picks one of three conversions for an Input:
//
//	HTML present            → html-to-markdown with the paste rules (html.go)
//	text looks like wiki    → regex rewrite chain (wiki.go)
//	anything else           → the text unchanged
//
// The normalizer never fails. When the paste converter errors or panics the
// input goes through the stock html-to-markdown conversion instead; if that
// also fails the input is returned as-is.
package normalize

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Format names the conversion that produced a Result.
type Format string

const (
	FormatHTML  Format = "html"
	FormatWiki  Format = "wiki"
	FormatPlain Format = "plain"
)

// Input is what a clipboard or file offers: an HTML representation, a plain
// text representation, or both.
type Input struct {
	HTML string
	Text string
}

// Result is the Markdown produced for an Input.
type Result struct {
	Markdown string `json:"markdown"`
	Format   Format `json:"format"`
}

// wikiSignature matches text that opens with a heading marker, a "* " bullet
// or a "||" header row, or that holds a {code} macro anywhere.
var wikiSignature = regexp.MustCompile(`^h[1-6]\.\s|^\* |^\|\||\{code`)

// LooksLikeWiki reports whether text carries wiki markup worth rewriting.
func LooksLikeWiki(text string) bool {
	return wikiSignature.MatchString(text)
}

// Normalizer converts rich text to Markdown. It is safe for concurrent use.
type Normalizer struct {
	cfg    Config
	logger *slog.Logger

	// convertHTML and fallback are fields so tests can force the degraded paths.
	convertHTML func(string) (string, error)
	fallback    func(string) (string, error)
}

// New creates a Normalizer.
func New(cfg Config, logger *slog.Logger) (*Normalizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	conv := newConverter(cfg)
	fallback := newFallbackConverter()
	return &Normalizer{
		cfg:    cfg,
		logger: logger,
		convertHTML: func(s string) (string, error) {
			md, err := conv.ConvertString(s)
			if err != nil {
				return "", err
			}
			return cleanup(md), nil
		},
		fallback: func(s string) (string, error) {
			return fallback.ConvertString(s)
		},
	}, nil
}

// Normalize converts in according to the dispatch order HTML → wiki → plain.
func (n *Normalizer) Normalize(in Input) Result {
	switch {
	case strings.TrimSpace(in.HTML) != "":
		return Result{Markdown: n.HTML(in.HTML), Format: FormatHTML}
	case in.Text != "" && LooksLikeWiki(in.Text):
		return Result{Markdown: n.Wiki(in.Text), Format: FormatWiki}
	default:
		return Result{Markdown: in.Text, Format: FormatPlain}
	}
}

// HTML converts an HTML document or fragment to Markdown.
func (n *Normalizer) HTML(src string) (md string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("html conversion panicked, using fallback converter",
				slog.String("panic", fmt.Sprint(r)),
				slog.Int("input_bytes", len(src)),
			)
			md = n.degrade(src)
		}
	}()
	md, err := n.convertHTML(src)
	if err != nil {
		n.logger.Warn("html conversion failed, using fallback converter",
			slog.String("error", err.Error()),
			slog.Int("input_bytes", len(src)),
		)
		return n.degrade(src)
	}
	return md
}

// Wiki converts wiki markup to Markdown.
func (n *Normalizer) Wiki(src string) (md string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("wiki conversion panicked, returning input unchanged",
				slog.String("panic", fmt.Sprint(r)),
			)
			md = src
		}
	}()
	return wikiToMarkdown(src)
}

func (n *Normalizer) degrade(src string) (md string) {
	defer func() {
		if r := recover(); r != nil {
			md = src
		}
	}()
	out, err := n.fallback(src)
	if err != nil {
		n.logger.Warn("fallback converter failed, returning input unchanged",
			slog.String("error", err.Error()),
		)
		return src
	}
	return strings.TrimSpace(out)
}
