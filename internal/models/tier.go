package models

import "strings"

// Tier уровень учётной записи, определяющий доступ к функциям.
type Tier string

const (
	TierFree          Tier = "free"
	TierBasic         Tier = "basic"
	TierPro           Tier = "pro"
	TierInstitutional Tier = "institutional"
)

// Tiers все тарифы в порядке возрастания.
var Tiers = []Tier{TierFree, TierBasic, TierPro, TierInstitutional}

// Valid проверяет, что тариф входит в перечисление.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPro, TierInstitutional:
		return true
	}
	return false
}

// ParseTier разбирает строку без учёта регистра.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidTier
	}
	return t, nil
}
