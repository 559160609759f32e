package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ansiPattern    = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	controlPattern = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	crlfReplacer   = strings.NewReplacer("\r\n", "\n")
)

// CleanTerminalOutput removes ANSI escape sequences and control characters
// other than tab, newline and carriage return, then normalizes CRLF to LF.
func CleanTerminalOutput(text string) string {
	text = ansiPattern.ReplaceAllString(text, "")
	text = controlPattern.ReplaceAllString(text, "")
	return crlfReplacer.Replace(text)
}

// LineBuffer accumulates streamed text and hands back complete lines.
type LineBuffer struct {
	partial strings.Builder
}

// Write appends text and returns every line it completed, without the
// trailing newline. Carriage returns also end a line so progress bars that
// redraw in place surface each redraw.
func (b *LineBuffer) Write(text string) []string {
	var lines []string
	for _, r := range text {
		if r == '\n' || r == '\r' {
			if b.partial.Len() > 0 {
				lines = append(lines, b.partial.String())
				b.partial.Reset()
			}
			continue
		}
		b.partial.WriteRune(r)
	}
	return lines
}

// Flush returns any trailing partial line.
func (b *LineBuffer) Flush() string {
	rest := b.partial.String()
	b.partial.Reset()
	return rest
}

// Label converts a snake_case or kebab-case identifier to a title-cased label.
func Label(identifier string) string {
	words := strings.FieldsFunc(identifier, func(r rune) bool { return r == '_' || r == '-' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}
