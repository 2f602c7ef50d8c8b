package normalize

import "fmt"

// Bounds for Config.InlineCodeMaxLength.
const (
	MinInlineCodeLength = 150
	MaxInlineCodeLength = 200
)

// Config holds the tunables of the HTML conversion.
type Config struct {
	// InlineCodeMaxLength is the rune count at which single-line code stops
	// being rendered inline and becomes a fenced block.
	InlineCodeMaxLength int
	// TableClass is written on every converted <table> so a stylesheet can
	// target tables that came in through a paste or import.
	TableClass string
}

// DefaultConfig returns the settings used by the server and CLI.
func DefaultConfig() Config {
	return Config{
		InlineCodeMaxLength: 160,
		TableClass:          "devnote-table",
	}
}

func (c Config) validate() error {
	if c.InlineCodeMaxLength < MinInlineCodeLength || c.InlineCodeMaxLength > MaxInlineCodeLength {
		return fmt.Errorf("normalize: inline code max length must be between %d and %d, got %d",
			MinInlineCodeLength, MaxInlineCodeLength, c.InlineCodeMaxLength)
	}
	if c.TableClass == "" {
		return fmt.Errorf("normalize: table class is required")
	}
	return nil
}
