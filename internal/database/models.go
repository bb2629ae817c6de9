package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	AvatarUrl    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Movie struct {
	Id           string
	Title        string
	Description  string
	ThumbnailUrl string
	VideoUrl     string
	Duration     int
	ReleaseYear  int
	Genres       []string
	Language     string
	IsPremium    bool
	Price        int
	Rating       float64
	CreatedAt    time.Time
}

type Purchase struct {
	Id        int
	UserId    int
	MovieId   string
	Amount    int
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
	AvatarUrl    string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
	AvatarUrl    string
}

type CreatePurchaseParams struct {
	UserId  int
	MovieId string
	Amount  int
}

// MovieFilters narrows ListMovies. Zero values leave the corresponding
// dimension unfiltered.
type MovieFilters struct {
	Query     string
	Genre     string
	Language  string
	IsPremium *bool
	MinRating float64
}
