package domain

// Product is an inventory document. Sizes maps an uppercase size label to
// quantity on hand; AvailableAmount must equal the sum of all size quantities
// and is recomputed on every stock mutation.
type Product struct {
	ID              string         `bson:"_id,omitempty" json:"id"`
	ProductID       string         `bson:"product_id" json:"product_id"`
	Name            string         `bson:"name" json:"name"`
	Sizes           map[string]int `bson:"sizes" json:"sizes"`
	AvailableAmount int            `bson:"available_amount" json:"available_amount"`
	BuyingPrice     float64        `bson:"buying_price" json:"buying_price"`
	SellingPrice    float64        `bson:"selling_price" json:"selling_price"`
}

// TotalStock sums the per-size quantities.
func (p *Product) TotalStock() int {
	total := 0
	for _, qty := range p.Sizes {
		total += qty
	}
	return total
}
