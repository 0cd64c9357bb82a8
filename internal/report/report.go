// Package report renders a stored record as a human-readable property sheet.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/sift/internal/store"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders rec as a Markdown document.
func Markdown(rec *store.Record) string {
	var b strings.Builder
	p := rec.Properties

	b.WriteString("# String report\n\n")

	fence := codeFence(rec.Value)
	fmt.Fprintf(&b, "%stext\n%s\n%s\n\n", fence, rec.Value, fence)

	b.WriteString("| property | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| id | `%s` |\n", rec.ID)
	fmt.Fprintf(&b, "| length | %d |\n", p.Length)
	fmt.Fprintf(&b, "| is_palindrome | %t |\n", p.IsPalindrome)
	fmt.Fprintf(&b, "| unique_characters | %d |\n", p.UniqueCharacters)
	fmt.Fprintf(&b, "| word_count | %d |\n", p.WordCount)
	fmt.Fprintf(&b, "| created_at | %s |\n", rec.CreatedAt.UTC().Format(time.RFC3339Nano))

	if len(p.CharacterFrequencyMap) == 0 {
		return b.String()
	}

	b.WriteString("\n## Character frequency\n\n| character | count |\n|---|---|\n")
	for _, ch := range slices.Sorted(maps.Keys(p.CharacterFrequencyMap)) {
		fmt.Fprintf(&b, "| %s | %d |\n", escapeCell(strconv.Quote(ch)), p.CharacterFrequencyMap[ch])
	}
	return b.String()
}

// HTML renders rec's Markdown report to HTML. Raw HTML in the value is
// never passed through.
func HTML(rec *store.Record) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(rec)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// codeFence returns a backtick fence longer than any backtick run in s.
func codeFence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

// escapeCell backslash-escapes Markdown punctuation so a table cell shows
// its text literally.
func escapeCell(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune("\\`*_{}[]<>()#+-.!|~&", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
