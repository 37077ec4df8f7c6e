// Package processor prepares extracted text before it is placed in a prompt.
package processor

import (
	"strings"
	"unicode/utf8"
)

const DefaultMaxChars = 3000

type ProcessorConfig struct {
	// MaxChars caps the prepared text, counted in characters.
	MaxChars int
	// PreserveLineBreaks keeps single newlines between lines instead of
	// folding everything onto one line.
	PreserveLineBreaks bool
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.MaxChars <= 0 {
		config.MaxChars = DefaultMaxChars
	}

	return Processor{
		config: config,
	}
}

// Prepare keeps the first MaxChars characters of text and cleans them.
// The cut is taken on text as given, so the result never reaches past it.
func (p Processor) Prepare(text string) string {
	return p.cleanText(Truncate(text, p.config.MaxChars))
}

// MaxChars reports the configured limit.
func (p Processor) MaxChars() int {
	return p.config.MaxChars
}

func (p Processor) cleanText(text string) string {
	text = strings.ToValidUTF8(text, "")

	if !p.config.PreserveLineBreaks {
		return strings.Join(strings.Fields(text), " ")
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Truncate returns the first n characters of s. It never splits a
// multi-byte character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n || utf8.RuneCountInString(s) <= n {
		return s
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
