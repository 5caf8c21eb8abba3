package media

// Type is the media category a file is organized under.
type Type string

const (
	TypeMovie     Type = "movie"
	TypeTV        Type = "tv"
	TypeBook      Type = "book"
	TypeAudiobook Type = "audiobook"
	TypeUnknown   Type = "unknown"
)

// ParseType maps user input onto a Type, returning TypeUnknown for anything
// unrecognized.
func ParseType(s string) Type {
	switch Type(s) {
	case TypeMovie, TypeTV, TypeBook, TypeAudiobook:
		return Type(s)
	}
	switch s {
	case "show", "series", "episode":
		return TypeTV
	case "film":
		return TypeMovie
	}
	return TypeUnknown
}

func (t Type) String() string {
	if t == "" {
		return string(TypeUnknown)
	}
	return string(t)
}

// Known reports whether t is one of the organizable types.
func (t Type) Known() bool {
	return t == TypeMovie || t == TypeTV || t == TypeBook || t == TypeAudiobook
}

// Identity is the best guess about what a single file is.
type Identity struct {
	Type         Type   `json:"type"`
	Title        string `json:"title"`
	Year         *int   `json:"year,omitempty"`
	Season       *int   `json:"season,omitempty"`
	Episode      *int   `json:"episode,omitempty"`
	EpisodeTitle string `json:"episode_title,omitempty"`
	Author       string `json:"author,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`
}

// HasEpisode reports whether both season and episode numbers are known.
func (id Identity) HasEpisode() bool {
	return id.Season != nil && id.Episode != nil
}

// Apply overlays the set fields of c onto a copy of id. Season and episode
// numbers always come from the identity.
func (id Identity) Apply(c Candidate) Identity {
	out := id
	if c.Title != "" {
		out.Title = c.Title
	}
	if c.Year != nil {
		out.Year = IntPtr(*c.Year)
	}
	if c.Author != "" {
		out.Author = c.Author
	}
	if c.EpisodeTitle != "" {
		out.EpisodeTitle = c.EpisodeTitle
	}
	if c.ExternalID != "" {
		out.ExternalID = c.ExternalID
	}
	if c.Type.Known() {
		out.Type = c.Type
	}
	return out
}

// Candidate is one normalized metadata provider result.
type Candidate struct {
	Title        string  `json:"title"`
	Year         *int    `json:"year,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	PosterRef    string  `json:"poster_ref,omitempty"`
	ExternalID   string  `json:"external_id,omitempty"`
	Type         Type    `json:"type"`
	Score        float64 `json:"score,omitempty"`
	Author       string  `json:"author,omitempty"`
	EpisodeTitle string  `json:"episode_title,omitempty"`
}

// Clone returns a deep copy of c.
func (c Candidate) Clone() Candidate {
	out := c
	if c.Year != nil {
		out.Year = IntPtr(*c.Year)
	}
	return out
}

// MaxCandidates bounds every candidate list handed out by the resolver.
const MaxCandidates = 5

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int {
	return &v
}

// IntValue dereferences p, returning 0 for nil.
func IntValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
