package model

// TokenManager generates and validates viewer access tokens.
type TokenManager interface {
	GenerateAccessToken(userID int64) (string, error)
	ParseAccessToken(token string) (int64, error)
}
