package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	AvatarUrl    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Movie struct {
	Id           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailUrl string `json:"thumbnail_url"`
	VideoUrl     string `json:"video_url"`
	// Duration is the runtime of the movie in seconds.
	Duration    int      `json:"duration"`
	ReleaseYear int      `json:"release_year"`
	Genres      []string `json:"genres"`
	Language    string   `json:"language"`
	IsPremium   bool     `json:"is_premium"`
	// Price in cents, zero for free movies.
	Price     int       `json:"price,omitempty"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Purchase struct {
	Id        int       `json:"id"`
	UserId    int       `json:"user_id"`
	MovieId   string    `json:"movie_id"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Participant struct {
	UserId         int       `json:"user_id"`
	Username       string    `json:"username"`
	AvatarUrl      string    `json:"avatar_url,omitempty"`
	JoinedAt       time.Time `json:"joined_at"`
	IsMuted        bool      `json:"is_muted"`
	IsVideoEnabled bool      `json:"is_video_enabled"`
	IsHost         bool      `json:"is_host"`
}

type ChatMessage struct {
	Id        string    `json:"id"`
	UserId    int       `json:"user_id"`
	Username  string    `json:"username"`
	AvatarUrl string    `json:"avatar_url,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsSystem  bool      `json:"is_system,omitempty"`
}

type Reaction struct {
	Id        string    `json:"id"`
	UserId    int       `json:"user_id"`
	Emoji     string    `json:"emoji"`
	Timestamp time.Time `json:"timestamp"`
	// X and Y are the on-screen position of the reaction,
	// normalized to [0,1] relative to the video frame.
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PlaybackState struct {
	// Position is the playback position in seconds into the movie.
	Position  float64 `json:"position"`
	IsPlaying bool    `json:"is_playing"`
	// Seq increases with every accepted playback update so
	// consumers can drop updates delivered out of order.
	Seq int `json:"seq"`
}

type Room struct {
	Id           string        `json:"id"`
	Name         string        `json:"name"`
	HostId       int           `json:"host_id"`
	MovieId      string        `json:"movie_id"`
	IsPrivate    bool          `json:"is_private"`
	Playback     PlaybackState `json:"playback"`
	Participants []Participant `json:"participants"`
	Messages     []ChatMessage `json:"messages,omitempty"`
	Reactions    []Reaction    `json:"reactions,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
