package studio

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Recording is a finished take of one device.
//
// Media is shared between copies of a Recording and must never be modified
// after the recording was created.
type Recording struct {
	DeviceType DeviceType
	URL        string
	Media      []byte
	MimeType   string
	Dimensions *Dimensions
	Downloaded bool
}

func (r Recording) Size() int64 {
	return int64(len(r.Media))
}

var mimeTypeExtensions = map[string]string{
	"video/webm":       "webm",
	"audio/webm":       "webm",
	"video/mp4":        "mp4",
	"audio/mp4":        "m4a",
	"video/x-matroska": "mkv",
	"video/ogg":        "ogv",
	"audio/ogg":        "ogg",
}

var extensionMimeTypes = map[string]string{
	"webm": "video/webm",
	"mp4":  "video/mp4",
	"m4a":  "audio/mp4",
	"mkv":  "video/x-matroska",
	"ogv":  "video/ogg",
	"ogg":  "audio/ogg",
}

// MimeTypeByExtension is the inverse of FileExtension; unknown extensions
// yield "application/octet-stream".
func MimeTypeByExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if mimeType, ok := extensionMimeTypes[ext]; ok {
		return mimeType
	}
	return "application/octet-stream"
}

// FileExtension returns the file extension commonly used for the given mime
// type. Codec parameters (";codecs=...") are ignored.
func FileExtension(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	if ext, ok := mimeTypeExtensions[strings.ToLower(strings.TrimSpace(base))]; ok {
		return ext
	}
	return "bin"
}

var unsafeFileNameChars = regexp.MustCompile(`[^\p{L}\p{N}._ -]+`)

func sanitizeFileNamePart(s string) string {
	s = unsafeFileNameChars.ReplaceAllString(s, "_")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " ._")
}

// FileName returns the file name used both for uploading the recording and
// for saving it locally.
func (r Recording) FileName(title string) string {
	return RecordingFileName(title, r.DeviceType, r.MimeType)
}

func RecordingFileName(title string, deviceType DeviceType, mimeType string) string {
	title = sanitizeFileNamePart(title)
	if title == "" {
		title = "recording"
	}
	return fmt.Sprintf("%s-%s.%s", deviceType.FlavorType(), title, FileExtension(mimeType))
}

// DefaultTitle is the title suggested for a recording made at the given time.
func DefaultTitle(now time.Time) string {
	return "Recording " + now.Format("2006-01-02 15:04")
}
