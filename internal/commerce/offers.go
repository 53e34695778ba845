package commerce

import (
	"math"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

// bestOffer picks the eligible offer with the largest discount. Ties keep the first.
func bestOffer(offers []model.Offer, subtotal float64) (model.Offer, float64, bool) {
	var (
		best     model.Offer
		discount float64
		found    bool
	)
	for _, o := range offers {
		if o.Percent <= 0 || subtotal < o.MinSubtotal {
			continue
		}
		d := roundMoney(subtotal * o.Percent / 100)
		if !found || d > discount {
			best, discount, found = o, d, true
		}
	}
	return best, discount, found
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func orderTotals(lines []model.OrderLine, currency string) model.OrderTotals {
	var sub float64
	for _, l := range lines {
		sub += l.UnitPrice * float64(l.Quantity)
	}
	sub = roundMoney(sub)
	return model.OrderTotals{Subtotal: sub, Total: sub, Currency: currency}
}
