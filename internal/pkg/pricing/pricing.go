package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round は価格を小数点以下2桁に丸める
func Round(price decimal.Decimal) decimal.Decimal {
	return price.Round(2)
}

// ApplyDiscount は価格にパーセント割引を適用する
// 割引率が0以下の場合は元の価格を丸めて返す
func ApplyDiscount(price, percent decimal.Decimal) decimal.Decimal {
	if percent.LessThanOrEqual(decimal.Zero) {
		return Round(price)
	}
	discounted := price.Sub(price.Mul(percent).Div(hundred))
	return Round(discounted)
}

// Total は予約合計金額を計算する（座席単価 × 人数、割引適用後）
func Total(pricePerSeat, discountPercent decimal.Decimal, pax int) decimal.Decimal {
	unit := ApplyDiscount(pricePerSeat, discountPercent)
	return Round(unit.Mul(decimal.NewFromInt(int64(pax))))
}

// LowestValid は価格一覧から有効な（正の）最安値を返す
// 有効な価格がない場合は false を返す
func LowestValid(prices []decimal.Decimal) (decimal.Decimal, bool) {
	var lowest decimal.Decimal
	found := false
	for _, p := range prices {
		if p.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if !found || p.LessThan(lowest) {
			lowest = p
			found = true
		}
	}
	if !found {
		return decimal.Zero, false
	}
	return Round(lowest), true
}
