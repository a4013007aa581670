package domain

// CatalogProduct is the product-level catalog record owned by the catalog ingestion pipeline.
type CatalogProduct struct {
	ProductID string
	Title     string
	IsSoldOut bool
	IsVisible bool
}

// CatalogVariant carries the purchasable offer for one product variant.
type CatalogVariant struct {
	ProductID        string
	VariantID        string
	Title            string
	Price            Money
	MinOrderQuantity int
}

func (v CatalogVariant) Key() ItemKey {
	return ItemKey{ProductID: v.ProductID, VariantID: v.VariantID}
}

type InventoryRecord struct {
	ProductID string
	InStock   int
}

// ProductStatus is derived per query and never persisted.
type ProductStatus struct {
	ProductID string
	Title     string
	IsSoldOut bool
	IsVisible bool
	// InventoryInStock is nil when no inventory record exists.
	InventoryInStock *int
	Message          string
}

// Adverse reports whether any condition that blocks purchase holds.
func (s ProductStatus) Adverse() bool {
	return s.IsSoldOut || !s.IsVisible || (s.InventoryInStock != nil && *s.InventoryInStock <= 0)
}

type ItemStatus struct {
	ItemID string
	ProductStatus
}
