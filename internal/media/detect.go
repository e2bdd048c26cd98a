package media

import (
	"net/url"
	"path"
	"strings"
)

type Type string

const (
	TypeImage   Type = "image"
	TypeVideo   Type = "video"
	TypeAudio   Type = "audio"
	TypeArticle Type = "article"
	TypeHosted  Type = "hosted"
	TypeUnknown Type = "unknown"
)

var (
	videoExt  = extSet("mp4", "webm", "mov", "m4v", "ogv")
	audioExt  = extSet("mp3", "wav", "ogg", "flac", "m4a", "aac")
	hostedExt = extSet("html", "htm")
	imageExt  = extSet("png", "jpg", "jpeg", "gif", "svg", "webp", "avif")

	mimeKeys   = []string{"mimeType", "mime_type", "contentType"}
	audioWords = []string{"audio", "music", "sound"}
)

// Hint carries what the artifact record says about its media.
type Hint struct {
	// Explicit is an authoritative type label already on the record.
	Explicit   string
	Metadata   map[string]any
	Attributes []any
}

// Detect classifies resolvedURL. It never fails; unclassifiable input is TypeUnknown.
func Detect(hint Hint, resolvedURL string) Type {
	if t := ParseType(hint.Explicit); t != TypeUnknown {
		return t
	}
	if t := fromMime(metadataMime(hint.Metadata)); t != TypeUnknown {
		return t
	}
	ext := extension(resolvedURL)
	switch {
	case videoExt[ext]:
		return TypeVideo
	case audioExt[ext]:
		return TypeAudio
	case hostedExt[ext]:
		return TypeHosted
	case imageExt[ext]:
		return TypeImage
	}
	if ext == "" && IsContentAddressed(resolvedURL) {
		attrs := hint.Attributes
		if attrs == nil && hint.Metadata != nil {
			attrs, _ = hint.Metadata["attributes"].([]any)
		}
		if hasAudioTrait(attrs) {
			return TypeAudio
		}
		return TypeArticle
	}
	return TypeUnknown
}

// ParseType accepts a type name or a MIME type.
func ParseType(s string) Type {
	s = strings.ToLower(strings.TrimSpace(s))
	switch Type(s) {
	case TypeImage, TypeVideo, TypeAudio, TypeArticle, TypeHosted:
		return Type(s)
	}
	return fromMime(s)
}

// FromContentType classifies a Content-Type header value.
func FromContentType(ct string) Type {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return fromMime(strings.ToLower(strings.TrimSpace(ct)))
}

func fromMime(mime string) Type {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case mime == "":
		return TypeUnknown
	case strings.HasPrefix(mime, "video/"):
		return TypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return TypeAudio
	case strings.HasPrefix(mime, "text/"), strings.Contains(mime, "html"):
		return TypeArticle
	case strings.HasPrefix(mime, "image/"):
		return TypeImage
	}
	return TypeUnknown
}

func metadataMime(meta map[string]any) string {
	if meta == nil {
		return ""
	}
	for _, k := range mimeKeys {
		if v, ok := meta[k].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	if props, ok := meta["properties"].(map[string]any); ok {
		for _, k := range mimeKeys {
			if v, ok := props[k].(string); ok && strings.TrimSpace(v) != "" {
				return v
			}
		}
	}
	return ""
}

func extension(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Scheme != "data" {
		p = u.Path
	} else if err == nil {
		return ""
	}
	ext := strings.TrimPrefix(path.Ext(p), ".")
	return strings.ToLower(ext)
}

func hasAudioTrait(attrs []any) bool {
	for _, a := range attrs {
		m, ok := a.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"trait_type", "name", "key"} {
			name, _ := m[key].(string)
			name = strings.ToLower(name)
			for _, w := range audioWords {
				if strings.Contains(name, w) {
					return true
				}
			}
		}
	}
	return false
}

func extSet(exts ...string) map[string]bool {
	out := make(map[string]bool, len(exts))
	for _, e := range exts {
		out[e] = true
	}
	return out
}
