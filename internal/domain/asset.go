package domain

import "strings"

// Kind is the classification of a link.
type Kind string

const (
	KindUnknown   Kind = ""
	KindSlideshow Kind = "slideshow"
	KindVideo     Kind = "video"
)

// PhotoAsset is one slideshow image.
type PhotoAsset struct {
	Key  string
	URL  string
	Path string
}

// FileName returns a filesystem-safe base name for the photo.
func (p PhotoAsset) FileName() string {
	return strings.ReplaceAll(p.Key, "/", "-") + ".jpeg"
}

// PhotoSet maps dedup keys to photo URLs. Iteration follows the order in which
// each key was first put; putting an existing key replaces its URL but keeps
// its position.
type PhotoSet struct {
	index  map[string]int
	photos []PhotoAsset
}

// NewPhotoSet creates an empty PhotoSet.
func NewPhotoSet() *PhotoSet {
	return &PhotoSet{index: make(map[string]int)}
}

// Put records url under key.
func (s *PhotoSet) Put(key, url string) {
	if i, ok := s.index[key]; ok {
		s.photos[i].URL = url
		return
	}
	s.index[key] = len(s.photos)
	s.photos = append(s.photos, PhotoAsset{Key: key, URL: url})
}

// Get returns the URL stored for key.
func (s *PhotoSet) Get(key string) (string, bool) {
	i, ok := s.index[key]
	if !ok {
		return "", false
	}
	return s.photos[i].URL, true
}

// Len returns the number of distinct keys.
func (s *PhotoSet) Len() int {
	return len(s.photos)
}

// Photos returns a copy of the assets in first-discovery order.
func (s *PhotoSet) Photos() []PhotoAsset {
	out := make([]PhotoAsset, len(s.photos))
	copy(out, s.photos)
	return out
}

// VideoAsset describes one video run.
type VideoAsset struct {
	RawPath    string
	OutputPath string
	RawSize    int64
	OutputSize int64
	Title      string

	// Read back from the transcoded file.
	Duration   float64
	VideoCodec string
}

// ShortTitle returns the title up to the first '#', which drops hashtags.
func ShortTitle(title string) string {
	if i := strings.Index(title, "#"); i != -1 {
		return title[:i]
	}
	return title
}
