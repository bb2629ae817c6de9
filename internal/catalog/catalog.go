package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/watchparty/server/internal/database"
	"github.com/watchparty/server/internal/types"
)

var (
	ErrMovieNotFound = errors.New("movie not found")
	ErrAlreadyOwned  = errors.New("movie already purchased")
	ErrNotPremium    = errors.New("movie does not require a purchase")
)

// Service exposes the movie catalog and purchase entitlements. Room
// creation for premium titles is gated on Entitled.
type Service struct {
	db  database.WatchPartyRepository
	log *log.Logger
}

func NewService(logger *log.Logger, db database.WatchPartyRepository) *Service {
	return &Service{
		db:  db,
		log: logger,
	}
}

func (s *Service) GetMovie(movieId string) (types.Movie, error) {
	m, err := s.db.GetMovieById(movieId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Movie{}, ErrMovieNotFound
		}
		return types.Movie{}, fmt.Errorf("get movie: %w", err)
	}

	return toMovie(m), nil
}

func (s *Service) ListMovies(filters database.MovieFilters) ([]types.Movie, error) {
	dbMovies, err := s.db.ListMovies(filters)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}

	movies := make([]types.Movie, len(dbMovies))
	for i, m := range dbMovies {
		movies[i] = toMovie(m)
	}

	return movies, nil
}

// Entitled reports whether userId may host or purchase-gate access to
// movieId. Free movies are always entitled.
func (s *Service) Entitled(userId int, movieId string) (bool, error) {
	m, err := s.db.GetMovieById(movieId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrMovieNotFound
		}
		return false, fmt.Errorf("get movie: %w", err)
	}

	if !m.IsPremium {
		return true, nil
	}

	owned, err := s.db.PurchaseExists(userId, movieId)
	if err != nil {
		return false, fmt.Errorf("purchase lookup: %w", err)
	}

	return owned, nil
}

// Purchase records a purchase of a premium movie at its listed price.
// Payment processing itself happens upstream; this only records the
// resulting entitlement.
func (s *Service) Purchase(userId int, movieId string) (types.Purchase, error) {
	m, err := s.db.GetMovieById(movieId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Purchase{}, ErrMovieNotFound
		}
		return types.Purchase{}, fmt.Errorf("get movie: %w", err)
	}

	if !m.IsPremium {
		return types.Purchase{}, ErrNotPremium
	}

	owned, err := s.db.PurchaseExists(userId, movieId)
	if err != nil {
		return types.Purchase{}, fmt.Errorf("purchase lookup: %w", err)
	}
	if owned {
		return types.Purchase{}, ErrAlreadyOwned
	}

	p, err := s.db.CreatePurchase(database.CreatePurchaseParams{
		UserId:  userId,
		MovieId: movieId,
		Amount:  m.Price,
	})
	if err != nil {
		return types.Purchase{}, fmt.Errorf("create purchase: %w", err)
	}

	s.log.Printf("user %d purchased movie %q for %d", userId, movieId, m.Price)

	return types.Purchase{
		Id:        p.Id,
		UserId:    p.UserId,
		MovieId:   p.MovieId,
		Amount:    p.Amount,
		CreatedAt: p.CreatedAt,
	}, nil
}

// Library returns the movies userId has purchased.
func (s *Service) Library(userId int) ([]types.Movie, error) {
	purchases, err := s.db.ListPurchases(userId)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	var movies []types.Movie
	for _, p := range purchases {
		m, err := s.db.GetMovieById(p.MovieId)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// purchased movie no longer in the catalog
				continue
			}
			return nil, fmt.Errorf("get movie: %w", err)
		}
		movies = append(movies, toMovie(m))
	}

	return movies, nil
}

func toMovie(m database.Movie) types.Movie {
	return types.Movie{
		Id:           m.Id,
		Title:        m.Title,
		Description:  m.Description,
		ThumbnailUrl: m.ThumbnailUrl,
		VideoUrl:     m.VideoUrl,
		Duration:     m.Duration,
		ReleaseYear:  m.ReleaseYear,
		Genres:       m.Genres,
		Language:     m.Language,
		IsPremium:    m.IsPremium,
		Price:        m.Price,
		Rating:       m.Rating,
		CreatedAt:    m.CreatedAt,
	}
}
