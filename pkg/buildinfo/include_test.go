// SPDX-License-Identifier: MPL-2.0

package buildinfo

import "testing"

func TestParseIncludePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    IncludePath
		wantErr bool
	}{
		{
			name: "unprefixed is module-relative",
			raw:  "include",
			want: IncludePath{Path: "include", Anchor: AnchorModule},
		},
		{
			name: "base anchor",
			raw:  "#base/annlib/include",
			want: IncludePath{Path: "annlib/include", Anchor: AnchorBase},
		},
		{
			name: "build anchor",
			raw:  "#build/dxtbx/include",
			want: IncludePath{Path: "dxtbx/include", Anchor: AnchorBuild},
		},
		{
			name: "private module-relative",
			raw:  "!src/detail",
			want: IncludePath{Path: "src/detail", Anchor: AnchorModule, Private: true},
		},
		{
			name: "private with anchor",
			raw:  "!#build/generated",
			want: IncludePath{Path: "generated", Anchor: AnchorBuild, Private: true},
		},
		{
			name: "bare build anchor",
			raw:  "#build",
			want: IncludePath{Path: "", Anchor: AnchorBuild},
		},
		{name: "unknown anchor", raw: "#bogus/x", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "bare private", raw: "!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseIncludePath(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIncludePath(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseIncludePath(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestIncludePath_StringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"include", "#base/annlib/include", "#build/x", "!src", "!#base/y"} {
		p, err := ParseIncludePath(raw)
		if err != nil {
			t.Fatalf("ParseIncludePath(%q): %v", raw, err)
		}
		if got := p.String(); got != raw {
			t.Errorf("round trip %q -> %q", raw, got)
		}
	}
}
