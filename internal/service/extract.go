package service

import (
	"regexp"
	"strings"

	"github.com/iconidentify/tokgrabba/internal/domain"
)

var quotedString = regexp.MustCompile(`"([^"]*)"`)

const (
	// encodedSlash is how the page's inline JSON escapes "/".
	encodedSlash = "u002F"

	// localeSuffixLen skips the "-xx/" that follows the marker, where xx is a
	// region such as "us" or "tx".
	localeSuffixLen = 4
)

// ExtractPhotos finds the slideshow photo URLs embedded in an HTML document.
// Every double-quoted string containing marker is a candidate. Candidates
// carrying an escaped backslash are encoded variants and are skipped. The
// rest are unescaped and keyed by the text between the marker's locale
// suffix and the next '~', so tracking variants of one photo collapse to a
// single entry. Photos keep the order in which their key first appears.
func ExtractPhotos(doc, marker string) *domain.PhotoSet {
	set := domain.NewPhotoSet()
	if marker == "" {
		return set
	}

	for _, m := range quotedString.FindAllStringSubmatch(doc, -1) {
		s := m[1]
		if !strings.Contains(s, marker) || strings.Contains(s, `\\`) {
			continue
		}

		url := normalizePhotoURL(s)
		key, ok := photoKey(url, marker)
		if !ok {
			continue
		}
		set.Put(key, url)
	}
	return set
}

func normalizePhotoURL(s string) string {
	s = strings.ReplaceAll(s, encodedSlash, "")
	return strings.ReplaceAll(s, `\`, "/")
}

func photoKey(url, marker string) (string, bool) {
	start := strings.Index(url, marker) + len(marker) + localeSuffixLen
	if start > len(url) {
		return "", false
	}
	end := strings.IndexByte(url[start:], '~')
	if end <= 0 {
		return "", false
	}
	return url[start : start+end], true
}
