package task

import (
	"fmt"
	"strings"
	"time"
)

// Extension is the canonical task file extension.
const Extension = ".md"

// slugMaxLen caps the slug portion of a generated filename.
const slugMaxLen = 60

// Slug converts a title to its filename form: lowercased, runs of
// non-alphanumeric characters collapsed to single hyphens, trimmed, and
// truncated to slugMaxLen. A title that slugs to nothing yields "task".
func Slug(title string) string {
	var b strings.Builder
	pendingHyphen := false

	for _, r := range strings.ToLower(title) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			if b.Len() > 0 {
				pendingHyphen = true
			}
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}

	slug := b.String()
	if len(slug) > slugMaxLen {
		slug = strings.TrimRight(slug[:slugMaxLen], "-")
	}
	if slug == "" {
		return "task"
	}
	return slug
}

// Filename derives the canonical filename for a task created at the given
// instant: {UTC yyyyMMdd-HHmm}-{slug}.md.
func Filename(title string, at time.Time) string {
	return at.UTC().Format("20060102-1504") + "-" + Slug(title) + Extension
}

// UniqueFilename resolves naming collisions by appending -2, -3, ... before
// the extension until exists reports a free name. The base name itself is
// tried first.
func UniqueFilename(base string, exists func(name string) bool) string {
	if !exists(base) {
		return base
	}

	stem := strings.TrimSuffix(base, Extension)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, Extension)
		if !exists(candidate) {
			return candidate
		}
	}
}

// TitleFromFilename derives a display title from a filename, used as the
// parse fallback when a header omits its title. The timestamp prefix is
// stripped when present and hyphens become spaces.
func TitleFromFilename(name string) string {
	stem := strings.TrimSuffix(name, Extension)

	// Strip a leading yyyyMMdd-HHmm prefix.
	parts := strings.SplitN(stem, "-", 3)
	if len(parts) == 3 && len(parts[0]) == 8 && len(parts[1]) == 4 &&
		isDigits(parts[0]) && isDigits(parts[1]) {
		stem = parts[2]
	}

	title := strings.TrimSpace(strings.ReplaceAll(stem, "-", " "))
	if title == "" {
		return "task"
	}
	return title
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
