package media

import (
	"path/filepath"
	"strings"
)

// Kind is the structural verdict for a path based on its extension alone.
type Kind int

const (
	KindOther Kind = iota
	KindVideo
	KindAudio
	KindBook
)

var (
	videoExtensions = map[string]bool{
		".mkv": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true, ".m4v": true,
	}
	audioExtensions = map[string]bool{
		".mp3": true, ".m4b": true, ".m4a": true, ".flac": true,
	}
	bookExtensions = map[string]bool{
		".epub": true, ".pdf": true, ".mobi": true, ".azw3": true,
	}
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindBook:
		return "book"
	default:
		return "other"
	}
}

// MediaType maps a structural kind onto the type it implies without any
// further parsing. Video files still need the filename cascade.
func (k Kind) MediaType() Type {
	switch k {
	case KindAudio:
		return TypeAudiobook
	case KindBook:
		return TypeBook
	default:
		return TypeUnknown
	}
}

// ClassifyPath inspects the extension of path.
func ClassifyPath(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case videoExtensions[ext]:
		return KindVideo
	case audioExtensions[ext]:
		return KindAudio
	case bookExtensions[ext]:
		return KindBook
	default:
		return KindOther
	}
}

// IsKnown reports whether path has an extension the scanner picks up.
func IsKnown(path string) bool {
	return ClassifyPath(path) != KindOther
}

// IsVideo reports whether path is a video file.
func IsVideo(path string) bool {
	return ClassifyPath(path) == KindVideo
}
