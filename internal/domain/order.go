package domain

import "time"

// Order statuses written by this service. Orders created through the
// confirmation flow always start out confirmed; cancellation happens
// elsewhere.
const (
	StatusConfirmed = "confirmed"

	// SourceFacebookAdmin marks orders created from an admin /confirmation
	// command in the page inbox.
	SourceFacebookAdmin = "facebook-admin"
)

// OrderItem is a single line of an order. Quantity is always 1 per line;
// the same product/size appearing twice in a command yields two lines.
type OrderItem struct {
	ProductID             string         `bson:"product_id" json:"product_id"`
	ProductName           string         `bson:"product_name" json:"product_name"`
	SelectedSizes         map[string]int `bson:"selected_sizes" json:"selected_sizes"`
	UnitSellingPrice      float64        `bson:"unit_selling_price" json:"unit_selling_price"`
	ItemTotalSellingPrice float64        `bson:"item_total_selling_price" json:"item_total_selling_price"`
	UnitBuyingPrice       float64        `bson:"unit_buying_price" json:"unit_buying_price"`
}

// Order is the ledger record created once per successful confirmation.
// Immutable after creation as far as this service is concerned.
type Order struct {
	ID              string      `bson:"_id,omitempty" json:"id"`
	Items           []OrderItem `bson:"items" json:"items"`
	CustomerName    string      `bson:"customer_name" json:"customer_name"`
	CustomerAddress string      `bson:"customer_address" json:"customer_address"`
	CustomerPhone   string      `bson:"customer_phone" json:"customer_phone"`
	DeliveryCharge  float64     `bson:"delivery_charge" json:"delivery_charge"`
	AdvancePaid     float64     `bson:"advance_paid" json:"advance_paid"`
	TotalOrderPrice float64     `bson:"total_order_price" json:"total_order_price"`
	CODAmount       float64     `bson:"cod_amount" json:"cod_amount"`
	Profit          float64     `bson:"profit" json:"profit"`
	Status          string      `bson:"status" json:"status"`
	Source          string      `bson:"source" json:"source"`
	CreatedAt       time.Time   `bson:"created_at" json:"created_at"`
	OrderDate       time.Time   `bson:"order_date" json:"order_date"`
	ChannelUserID   string      `bson:"channel_user_id" json:"channel_user_id"`
}
