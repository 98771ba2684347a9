// Package models declares the domain types shared by the storage layer and
// the HTTP API. Every type here is part of the persisted document, so JSON
// field names follow the wire format of the remote store.
package models

import "time"

// Role classifies a user's privileges on the site.
type Role string

const (
	RoleUser  Role = "user"
	RoleMod   Role = "mod"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the recognised values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleMod, RoleAdmin:
		return true
	}
	return false
}

// RecentlyWatchedLimit bounds the per-user watch history. The oldest entry is
// evicted once the limit is exceeded.
const RecentlyWatchedLimit = 24

// WatchedItem records playback progress for a media item. Season and episode
// numbers are set only for episodic media; the identity tuple for upserts is
// (MediaID, SeasonNumber, EpisodeNumber).
type WatchedItem struct {
	MediaID       int       `json:"mediaId"`
	Progress      float64   `json:"progress"`
	Duration      float64   `json:"duration"`
	SeasonNumber  *int      `json:"seasonNumber,omitempty"`
	EpisodeNumber *int      `json:"episodeNumber,omitempty"`
	WatchedAt     time.Time `json:"watchedAt"`
}

// SameEpisode reports whether two watched items refer to the same media and,
// for episodic content, the same season and episode.
func (w WatchedItem) SameEpisode(other WatchedItem) bool {
	return w.MediaID == other.MediaID &&
		intPtrEqual(w.SeasonNumber, other.SeasonNumber) &&
		intPtrEqual(w.EpisodeNumber, other.EpisodeNumber)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// User is a confirmed account. The password is an opaque credential compared
// verbatim; the storage layer never derives or interprets it.
type User struct {
	ID                int           `json:"id"`
	Username          string        `json:"username"`
	Email             string        `json:"email"`
	Password          string        `json:"password"`
	Role              Role          `json:"role"`
	RecentlyWatched   []WatchedItem `json:"recentlyWatched"`
	ProfilePictureURL string        `json:"profilePictureUrl,omitempty"`
}

// PendingUser is a registration awaiting email verification. It is promoted
// to a User when the token is consumed before TokenExpires, and is otherwise
// left in place and rejected at verification time.
type PendingUser struct {
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Password          string    `json:"password"`
	ProfilePictureURL string    `json:"profilePictureUrl,omitempty"`
	VerificationToken string    `json:"verificationToken"`
	TokenExpires      time.Time `json:"tokenExpires"`
}

// MediaType distinguishes single-title media from episodic media.
type MediaType string

const (
	MediaTypeMovie  MediaType = "Movie"
	MediaTypeTVShow MediaType = "TV Show"
)

// Episode is a single entry inside a season.
type Episode struct {
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	SourceURL     string `json:"sourceUrl"`
	ThumbnailURL  string `json:"thumbnailUrl"`
}

// Season groups episodes for a TV show.
type Season struct {
	SeasonNumber int       `json:"seasonNumber"`
	Episodes     []Episode `json:"episodes"`
}

// Rating is a single user's score for a media item, unique per user.
type Rating struct {
	UserID int `json:"userId"`
	Rating int `json:"rating"`
}

// MediaComment is a flat, non-threaded comment on a media item. The ID is
// assigned by the storage layer; the timestamp is informational only.
type MediaComment struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Media is a catalogue entry, either a movie or a TV show with seasons.
type Media struct {
	ID                int            `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	PosterURL         string         `json:"posterUrl"`
	ThumbnailURL      string         `json:"thumbnailUrl,omitempty"`
	ReleaseYear       int            `json:"releaseYear"`
	Genre             []string       `json:"genre"`
	Type              MediaType      `json:"type"`
	AudioLanguages    []string       `json:"audioLanguages"`
	SubtitleLanguages []string       `json:"subtitleLanguages"`
	Comments          []MediaComment `json:"comments"`
	IsProtected       bool           `json:"isProtected"`
	LicenseServerURL  string         `json:"licenseServerUrl,omitempty"`
	AgeRating         string         `json:"ageRating"`
	SourceURL         string         `json:"sourceUrl,omitempty"`
	Seasons           []Season       `json:"seasons,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
	Ratings           []Rating       `json:"ratings,omitempty"`
}

// ForumComment is a node in a post's reply tree. IDs are unique across every
// post and nesting depth. Likes and Dislikes are derived counts and always
// equal the lengths of LikedBy and DislikedBy.
type ForumComment struct {
	ID                      int            `json:"id"`
	AuthorID                int            `json:"authorId"`
	AuthorUsername          string         `json:"authorUsername"`
	AuthorProfilePictureURL string         `json:"authorProfilePictureUrl,omitempty"`
	Text                    string         `json:"text"`
	CreatedAt               time.Time      `json:"createdAt"`
	Likes                   int            `json:"likes"`
	Dislikes                int            `json:"dislikes"`
	LikedBy                 []int          `json:"likedBy"`
	DislikedBy              []int          `json:"dislikedBy"`
	Replies                 []ForumComment `json:"replies"`
}

// ForumPost is a community thread. Upvotes and Downvotes are derived counts
// over UpvotedBy and DownvotedBy, which are mutually exclusive per user.
type ForumPost struct {
	ID                      int            `json:"id"`
	Title                   string         `json:"title"`
	Content                 string         `json:"content"`
	AuthorID                int            `json:"authorId"`
	AuthorUsername          string         `json:"authorUsername"`
	AuthorProfilePictureURL string         `json:"authorProfilePictureUrl,omitempty"`
	AuthorRole              Role           `json:"authorRole"`
	Category                string         `json:"category"`
	CreatedAt               time.Time      `json:"createdAt"`
	IsPinned                bool           `json:"isPinned"`
	Upvotes                 int            `json:"upvotes"`
	Downvotes               int            `json:"downvotes"`
	UpvotedBy               []int          `json:"upvotedBy"`
	DownvotedBy             []int          `json:"downvotedBy"`
	Comments                []ForumComment `json:"comments"`
}

// PostCategories is the fixed set of forum categories.
var PostCategories = []string{"General", "Updates", "Recommendations", "Discussion"}

// ValidPostCategory reports whether the category belongs to the fixed set.
func ValidPostCategory(category string) bool {
	for _, c := range PostCategories {
		if c == category {
			return true
		}
	}
	return false
}

// MaintenanceMode gates non-admin access to the site.
type MaintenanceMode struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

// PlayerSettings holds the video player defaults.
type PlayerSettings struct {
	AutoPlay bool `json:"autoPlay"`
	AutoNext bool `json:"autoNext"`
}

// Settings is the singleton site configuration. Stored settings are merged
// field-by-field over DefaultSettings on load so that fields introduced after
// a document was written still carry a value.
type Settings struct {
	MaintenanceMode MaintenanceMode `json:"maintenanceMode"`
	Player          PlayerSettings  `json:"player"`
	SiteName        string          `json:"siteName"`
}

// DefaultSettings returns the built-in configuration applied when the remote
// document carries none.
func DefaultSettings() Settings {
	return Settings{
		MaintenanceMode: MaintenanceMode{
			Enabled: false,
			Message: "Our services are temporarily unavailable as we're working on making things even better.",
		},
		Player: PlayerSettings{
			AutoPlay: true,
			AutoNext: true,
		},
		SiteName: "Yume TV",
	}
}
