package handler

import "testing"

func TestDetectImageType(t *testing.T) {
	pad := func(b []byte) []byte {
		for len(b) < 12 {
			b = append(b, 0)
		}
		return b
	}

	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"png", pad([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}), "png"},
		{"jpeg", pad([]byte{0xff, 0xd8, 0xff, 0xe0}), "jpeg"},
		{"gif87a", pad([]byte("GIF87a")), "gif"},
		{"gif89a", pad([]byte("GIF89a")), "gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "webp"},
		{"riff not webp", []byte("RIFF\x00\x00\x00\x00WAVE"), ""},
		{"text", pad([]byte("hello world!")), ""},
		{"too short", []byte{0x89, 'P', 'N', 'G'}, ""},
		{"empty", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectImageType(tc.data); got != tc.want {
				t.Errorf("DetectImageType(%s) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}
