package media

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		hint Hint
		url  string
		want Type
	}{
		{name: "mime beats extension", hint: Hint{Metadata: map[string]any{"mimeType": "audio/mp3"}}, url: "https://x.com/a.mp4", want: TypeAudio},
		{name: "mp4 extension", url: "https://x.com/clip.mp4", want: TypeVideo},
		{name: "extension ignores query", url: "https://x.com/clip.WEBM?sig=1", want: TypeVideo},
		{name: "arweave sound trait", hint: Hint{Attributes: []any{map[string]any{"trait_type": "Sound", "value": "on"}}}, url: "https://arweave.net/abc", want: TypeAudio},
		{name: "arweave music trait from metadata", hint: Hint{Metadata: map[string]any{"attributes": []any{map[string]any{"trait_type": "Music Genre"}}}}, url: "https://arweave.net/abc", want: TypeAudio},
		{name: "arweave plain is article", hint: Hint{Attributes: []any{map[string]any{"trait_type": "Color"}}}, url: "https://arweave.net/abc", want: TypeArticle},
		{name: "ipfs no extension is article", url: "https://ipfs.io/ipfs/QmAbc", want: TypeArticle},
		{name: "explicit wins", hint: Hint{Explicit: "video", Metadata: map[string]any{"mimeType": "audio/mp3"}}, url: "a.png", want: TypeVideo},
		{name: "explicit mime", hint: Hint{Explicit: "image/png"}, url: "https://x.com/a", want: TypeImage},
		{name: "nested properties mime", hint: Hint{Metadata: map[string]any{"properties": map[string]any{"mime_type": "video/mp4"}}}, url: "https://x.com/a", want: TypeVideo},
		{name: "html mime is article", hint: Hint{Metadata: map[string]any{"contentType": "text/html"}}, url: "https://x.com/a", want: TypeArticle},
		{name: "html extension hosted", url: "https://x.com/index.html", want: TypeHosted},
		{name: "audio extension", url: "https://x.com/track.flac", want: TypeAudio},
		{name: "image extension", url: "https://x.com/pic.jpeg", want: TypeImage},
		{name: "plain https unknown", url: "https://x.com/thing", want: TypeUnknown},
		{name: "data uri unknown", url: "data:text/plain,hello", want: TypeUnknown},
		{name: "empty", url: "", want: TypeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect(tc.hint, tc.url); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestFromContentType(t *testing.T) {
	if got := FromContentType("video/mp4; codecs=avc1"); got != TypeVideo {
		t.Fatalf("got %q", got)
	}
	if got := FromContentType("application/octet-stream"); got != TypeUnknown {
		t.Fatalf("got %q", got)
	}
}
