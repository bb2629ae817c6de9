package database

import (
	"github.com/stretchr/testify/mock"
)

type MockWatchPartyRepository struct {
	mock.Mock
}

func (m *MockWatchPartyRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockWatchPartyRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockWatchPartyRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockWatchPartyRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockWatchPartyRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockWatchPartyRepository) ListMovies(filters MovieFilters) ([]Movie, error) {
	args := m.Called(filters)
	return args.Get(0).([]Movie), args.Error(1)
}
func (m *MockWatchPartyRepository) GetMovieById(movieId string) (Movie, error) {
	args := m.Called(movieId)
	return args.Get(0).(Movie), args.Error(1)
}
func (m *MockWatchPartyRepository) CreatePurchase(params CreatePurchaseParams) (Purchase, error) {
	args := m.Called(params)
	return args.Get(0).(Purchase), args.Error(1)
}
func (m *MockWatchPartyRepository) PurchaseExists(accountId int, movieId string) (bool, error) {
	args := m.Called(accountId, movieId)
	return args.Bool(0), args.Error(1)
}
func (m *MockWatchPartyRepository) ListPurchases(accountId int) ([]Purchase, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Purchase), args.Error(1)
}
