package catalog

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/watchparty/server/internal/database"
	"github.com/watchparty/server/internal/testutil"
)

var (
	freeMovie    = database.Movie{Id: "m1", Title: "The Midnight Express", IsPremium: false}
	premiumMovie = database.Movie{Id: "m2", Title: "Paper Lanterns", IsPremium: true, Price: 499}
)

func TestService_GetMovie(t *testing.T) {
	mockDb := &database.MockWatchPartyRepository{}
	svc := NewService(testutil.TestLogger(t), mockDb)

	mockDb.On("GetMovieById", "m1").Return(freeMovie, nil)
	mockDb.On("GetMovieById", "missing").Return(database.Movie{}, sql.ErrNoRows)

	movie, err := svc.GetMovie("m1")
	require.NoError(t, err)
	assert.Equal(t, "The Midnight Express", movie.Title)

	_, err = svc.GetMovie("missing")
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestService_Entitled(t *testing.T) {
	mockDb := &database.MockWatchPartyRepository{}
	svc := NewService(testutil.TestLogger(t), mockDb)

	mockDb.On("GetMovieById", "m1").Return(freeMovie, nil)
	mockDb.On("GetMovieById", "m2").Return(premiumMovie, nil)
	mockDb.On("PurchaseExists", 1, "m2").Return(true, nil)
	mockDb.On("PurchaseExists", 2, "m2").Return(false, nil)

	entitled, err := svc.Entitled(2, "m1")
	require.NoError(t, err)
	assert.True(t, entitled, "expected free movies to be entitled for everyone")

	entitled, err = svc.Entitled(1, "m2")
	require.NoError(t, err)
	assert.True(t, entitled, "expected purchaser to be entitled")

	entitled, err = svc.Entitled(2, "m2")
	require.NoError(t, err)
	assert.False(t, entitled, "expected non-purchaser to lack entitlement")
}

func TestService_Purchase(t *testing.T) {
	t.Run("records premium purchase at listed price", func(t *testing.T) {
		mockDb := &database.MockWatchPartyRepository{}
		svc := NewService(testutil.TestLogger(t), mockDb)

		mockDb.On("GetMovieById", "m2").Return(premiumMovie, nil)
		mockDb.On("PurchaseExists", 1, "m2").Return(false, nil)
		mockDb.On("CreatePurchase", database.CreatePurchaseParams{UserId: 1, MovieId: "m2", Amount: 499}).
			Return(database.Purchase{Id: 10, UserId: 1, MovieId: "m2", Amount: 499}, nil)

		p, err := svc.Purchase(1, "m2")
		require.NoError(t, err)
		assert.Equal(t, 499, p.Amount)
		mockDb.AssertExpectations(t)
	})

	t.Run("free movie", func(t *testing.T) {
		mockDb := &database.MockWatchPartyRepository{}
		svc := NewService(testutil.TestLogger(t), mockDb)

		mockDb.On("GetMovieById", "m1").Return(freeMovie, nil)

		_, err := svc.Purchase(1, "m1")
		assert.ErrorIs(t, err, ErrNotPremium)
	})

	t.Run("duplicate purchase", func(t *testing.T) {
		mockDb := &database.MockWatchPartyRepository{}
		svc := NewService(testutil.TestLogger(t), mockDb)

		mockDb.On("GetMovieById", "m2").Return(premiumMovie, nil)
		mockDb.On("PurchaseExists", 1, "m2").Return(true, nil)

		_, err := svc.Purchase(1, "m2")
		assert.ErrorIs(t, err, ErrAlreadyOwned)
	})
}

func TestService_Library(t *testing.T) {
	mockDb := &database.MockWatchPartyRepository{}
	svc := NewService(testutil.TestLogger(t), mockDb)

	mockDb.On("ListPurchases", 1).Return([]database.Purchase{
		{Id: 10, UserId: 1, MovieId: "m2", Amount: 499},
	}, nil)
	mockDb.On("GetMovieById", "m2").Return(premiumMovie, nil)

	movies, err := svc.Library(1)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Paper Lanterns", movies[0].Title)
}
