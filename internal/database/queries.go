package database

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

func (db *PgWatchPartyRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, avatar_url, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, username, email, avatar_url",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		params.AvatarUrl,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.AvatarUrl,
	)

	return u, err
}

func (db *PgWatchPartyRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, avatar_url = $4, updated_at = $5 "+
			"WHERE id = $1 RETURNING id, username, email, avatar_url",
		params.UserId,
		params.Username,
		params.PasswordHash,
		params.AvatarUrl,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.AvatarUrl,
	)

	return u, err
}

func (db *PgWatchPartyRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, avatar_url, created_at, updated_at "+
			"FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	return scanUser(row)
}

func (db *PgWatchPartyRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, avatar_url, created_at, updated_at "+
			"FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var updatedAt sql.NullTime
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.PasswordHash,
		&u.AvatarUrl,
		&u.CreatedAt,
		&updatedAt,
	)
	if updatedAt.Valid {
		u.UpdatedAt = updatedAt.Time
	}

	return u, err
}

func (db *PgWatchPartyRepository) ListMovies(filters MovieFilters) ([]Movie, error) {
	rows, err := db.conn.Query(
		"SELECT id, title, description, thumbnail_url, video_url, duration, release_year, "+
			"genres, language, is_premium, price, rating, created_at FROM movies "+
			"WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%') "+
			"AND ($2 = '' OR $2 = ANY(genres)) "+
			"AND ($3 = '' OR language = $3) "+
			"AND ($4::boolean IS NULL OR is_premium = $4) "+
			"AND rating >= $5 "+
			"ORDER BY title",
		filters.Query,
		filters.Genre,
		filters.Language,
		filters.IsPremium,
		filters.MinRating,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []Movie
	for rows.Next() {
		var m Movie
		if err := rows.Scan(
			&m.Id,
			&m.Title,
			&m.Description,
			&m.ThumbnailUrl,
			&m.VideoUrl,
			&m.Duration,
			&m.ReleaseYear,
			pq.Array(&m.Genres),
			&m.Language,
			&m.IsPremium,
			&m.Price,
			&m.Rating,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}

	return movies, rows.Err()
}

func (db *PgWatchPartyRepository) GetMovieById(movieId string) (Movie, error) {
	row := db.conn.QueryRow(
		"SELECT id, title, description, thumbnail_url, video_url, duration, release_year, "+
			"genres, language, is_premium, price, rating, created_at "+
			"FROM movies WHERE id = $1 LIMIT 1",
		movieId,
	)

	var m Movie
	err := row.Scan(
		&m.Id,
		&m.Title,
		&m.Description,
		&m.ThumbnailUrl,
		&m.VideoUrl,
		&m.Duration,
		&m.ReleaseYear,
		pq.Array(&m.Genres),
		&m.Language,
		&m.IsPremium,
		&m.Price,
		&m.Rating,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgWatchPartyRepository) CreatePurchase(params CreatePurchaseParams) (Purchase, error) {
	res := db.conn.QueryRow(
		"INSERT INTO purchases (account_id, movie_id, amount, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, account_id, movie_id, amount, created_at",
		params.UserId,
		params.MovieId,
		params.Amount,
		time.Now().UTC(),
	)

	var p Purchase
	err := res.Scan(
		&p.Id,
		&p.UserId,
		&p.MovieId,
		&p.Amount,
		&p.CreatedAt,
	)

	return p, err
}

func (db *PgWatchPartyRepository) PurchaseExists(accountId int, movieId string) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM purchases WHERE account_id = $1 AND movie_id = $2)",
		accountId,
		movieId,
	)

	var exists bool
	err := row.Scan(&exists)

	return exists, err
}

func (db *PgWatchPartyRepository) ListPurchases(accountId int) ([]Purchase, error) {
	rows, err := db.conn.Query(
		"SELECT id, account_id, movie_id, amount, created_at FROM purchases "+
			"WHERE account_id = $1 ORDER BY created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(
			&p.Id,
			&p.UserId,
			&p.MovieId,
			&p.Amount,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}

	return purchases, rows.Err()
}
