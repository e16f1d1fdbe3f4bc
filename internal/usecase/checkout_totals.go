package usecase

// チェックアウト1行分。カート明細にバリアント・ベンダー情報を解決したもの。
// 金額は最小通貨単位の整数。
type CheckoutLine struct {
	VariantID   int64  `json:"variant_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	VariantName string `json:"variant_name"`
	VendorID    int64  `json:"vendor_id"`
	VendorName  string `json:"vendor_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
}

// ベンダーごとのまとまり。保存はしない。画面表示・確定のたびに作り直す。
type VendorGroup struct {
	VendorID    int64          `json:"vendor_id"`
	VendorName  string         `json:"vendor_name"`
	Items       []CheckoutLine `json:"items"`
	Subtotal    int64          `json:"subtotal"`
	ShippingFee int64          `json:"shipping_fee"`
	//買い手には請求しない（ベンダー精算用）
	Commission int64 `json:"commission"`
	Discount   int64 `json:"discount"`
	Total      int64 `json:"total"`
}

// vendorIDで分割する。グループ内の行順はカートの順を保つ。
// 送料はグループ単位で掛かるので、分割は金額計算より先。
func GroupItemsByVendor(lines []CheckoutLine) []VendorGroup {
	groups := make([]VendorGroup, 0)
	index := make(map[int64]int)

	for _, ln := range lines {
		i, ok := index[ln.VendorID]
		if !ok {
			groups = append(groups, VendorGroup{
				VendorID:   ln.VendorID,
				VendorName: ln.VendorName,
				Items:      make([]CheckoutLine, 0, 1),
			})
			i = len(groups) - 1
			index[ln.VendorID] = i
		}
		groups[i].Items = append(groups[i].Items, ln)
	}

	return groups
}

// 1グループの金額を確定する。
// - subtotal = Σ(単価×数量)
// - commission = subtotal × 手数料率(bps)
// - discount = subtotal × クーポン率(%)（送料には掛けない）
// - total = subtotal - discount + 送料
// 丸めはグループごとに1回だけ（四捨五入）。
func CalculateGroupTotals(g *VendorGroup, shippingFee int64, platformFeeBps int64, discountPercent int64) {
	var subtotal int64 = 0
	for _, ln := range g.Items {
		subtotal += ln.UnitPrice * ln.Quantity
	}

	g.Subtotal = subtotal
	g.ShippingFee = shippingFee
	g.Commission = roundHalfUpDiv(subtotal*platformFeeBps, 10000)
	g.Discount = roundHalfUpDiv(subtotal*discountPercent, 100)
	g.Total = subtotal - g.Discount + shippingFee
}

// 非負整数の四捨五入つき除算
func roundHalfUpDiv(n int64, d int64) int64 {
	return (n + d/2) / d
}
