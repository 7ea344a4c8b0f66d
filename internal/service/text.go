package service

import (
	"strings"
	"unicode/utf16"

	"guestbook-board/internal/domain"
)

// truncateUnits cuts s to at most limit UTF-16 code units, the unit browsers
// count string length in. A character is never split in half.
func truncateUnits(s string, limit int) string {
	units := 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > limit {
			return s[:i]
		}
		units += n
	}
	return s
}

func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.DefaultTitle
	}
	return truncateUnits(title, domain.MaxTitleLength)
}

func sanitizeContent(content string) string {
	return truncateUnits(strings.TrimSpace(content), domain.MaxContentLength)
}
