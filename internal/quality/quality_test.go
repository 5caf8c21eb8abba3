package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		path string
		want Tags
	}{
		{
			name: "full scene release",
			path: "/dl/The.Matrix.1999.1080p.BluRay.x264-SPARKS.mkv",
			want: Tags{Resolution: "1080p", Source: "BluRay", Codec: "x264", Group: "SPARKS"},
		},
		{
			name: "web episode",
			path: "Show.S01E02.2160p.WEB-DL.HEVC-NTb.mkv",
			want: Tags{Resolution: "2160p", Source: "WEB-DL", Codec: "x265", Group: "NTb"},
		},
		{
			name: "proper hdtv",
			path: "Show.S01E02.PROPER.720p.HDTV.x264-LOL.mkv",
			want: Tags{Resolution: "720p", Source: "HDTV", Codec: "x264", Group: "LOL", Proper: true},
		},
		{
			name: "clean name has no group",
			path: "Spider-Man (2002).mkv",
			want: Tags{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.path))
		})
	}
}

func TestMarkerIndex(t *testing.T) {
	assert.Equal(t, -1, MarkerIndex("Ozymandias"))
	assert.Equal(t, 6, MarkerIndex("Pilot 720p HDTV x264"))
	assert.Equal(t, 0, MarkerIndex("[SubsPlease] Frieren"))
}

func TestTagsString(t *testing.T) {
	tags := Tags{Resolution: "1080p", Source: "WEB-DL", Proper: true}
	assert.Equal(t, "1080p WEB-DL PROPER", tags.String())
	assert.Equal(t, "", Tags{}.String())
}
