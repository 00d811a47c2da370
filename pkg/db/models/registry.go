package models

// All lists every persisted model, parents first.
func All() []any {
	return []any{
		&User{},
		&Client{},
		&Vendor{},
		&ClientFavoriteVendor{},
		&Category{},
		&Unit{},
		&Product{},
		&Order{},
		&OrderLine{},
		&Sale{},
		&SaleLine{},
		&Invoice{},
		&Payment{},
		&Delivery{},
		&Notification{},
		&StockMovement{},
	}
}
