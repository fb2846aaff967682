package model

// Product is a single catalog row as published by the supplier.
type Product struct {
	PartNumber   string
	Description  string
	Title        string
	Category     string
	AltCode      string
	Model        string
	Manufacturer string
	Available    float64 // negative means backorder (orders exceed stock)
	OnOrder      float64
	Discontinued bool
	ModifiedOn   string
	AddedOn      string
	ETA          string
	CADmap       float64 // 0 when the supplier sent null
	USDmap       float64
	Price        float64 // cost price
}

// PricedEntry is the downstream representation of a priced product.
type PricedEntry struct {
	SKU        string         `json:"SKU"`
	FinalPrice float64        `json:"Final Price"`
	CostPrice  float64        `json:"Cost Price"`
	IsActive   bool           `json:"isActive"`
	Inventory  map[string]int `json:"Inventory"`
}
