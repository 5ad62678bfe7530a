package catalog

import "testing"

func TestResolveAssetURL(t *testing.T) {
	base := "https://api.test.cd"

	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{name: "bare ref", base: base, ref: "foo/bar.mp4", want: "https://api.test.cd/media/foo/bar.mp4"},
		{name: "leading slash ref", base: base, ref: "/media/x.mp4", want: "https://api.test.cd/media/x.mp4"},
		{name: "base with trailing slash", base: base + "/", ref: "/x.mp4", want: "https://api.test.cd/media/x.mp4"},
		{name: "already absolute", base: base, ref: "https://api.test.cd/media/x.mp4", want: "https://api.test.cd/media/x.mp4"},
		{name: "empty ref", base: base, ref: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAssetURL(tt.base, tt.ref)
			if got != tt.want {
				t.Errorf("ResolveAssetURL(%q, %q) = %q; want %q", tt.base, tt.ref, got, tt.want)
			}
			// resolving twice must equal resolving once
			if again := ResolveAssetURL(tt.base, got); again != got {
				t.Errorf("ResolveAssetURL() not idempotent: %q -> %q", got, again)
			}
		})
	}
}
