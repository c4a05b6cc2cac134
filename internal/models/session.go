package models

// TokenTypeBearer схема авторизации выданных токенов.
const TokenTypeBearer = "bearer"

// Session результат успешного входа.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         *User  `json:"user"`
}
