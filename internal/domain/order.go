package domain

// OrderLineItem is the read-only order line this service reconciles against.
// ItemCode doubles as the product code used for container stock lookups.
type OrderLineItem struct {
	OrderID         string `json:"orderId" yaml:"orderId"`
	ItemCode        string `json:"itemCode" yaml:"itemCode"`
	ProductName     string `json:"productName" yaml:"productName"`
	OrderedQuantity int    `json:"orderedQuantity" yaml:"orderedQuantity"`
}

// ProductCode returns the product code used for container lookups
func (o *OrderLineItem) ProductCode() string {
	return o.ItemCode
}
