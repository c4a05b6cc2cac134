// Package tier задаёт порядок тарифов и проверку доступа по тарифу.
package tier

import "github.com/jassenbt/fx-compass/internal/models"

var rank = map[models.Tier]int{
	models.TierFree:          0,
	models.TierBasic:         1,
	models.TierPro:           2,
	models.TierInstitutional: 3,
}

// Rank возвращает порядковый номер тарифа. ok=false для неизвестного тарифа.
func Rank(t models.Tier) (int, bool) {
	r, ok := rank[t]
	return r, ok
}

// Authorize сообщает, достаточно ли тарифа учётной записи для требуемого.
// Неизвестный тариф с любой стороны доступа не даёт.
func Authorize(account, required models.Tier) bool {
	a, ok := rank[account]
	if !ok {
		return false
	}
	r, ok := rank[required]
	if !ok {
		return false
	}
	return a >= r
}
