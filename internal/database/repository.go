package database

type WatchPartyRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	ListMovies(filters MovieFilters) ([]Movie, error)
	GetMovieById(movieId string) (Movie, error)
	CreatePurchase(params CreatePurchaseParams) (Purchase, error)
	PurchaseExists(accountId int, movieId string) (bool, error)
	ListPurchases(accountId int) ([]Purchase, error)
}
