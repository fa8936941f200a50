package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wms-platform/transfer-service/internal/domain"
)

// Directory serves order lines and container stock loaded from a seed
type Directory struct {
	mu         sync.RWMutex
	orders     map[string]map[string]domain.OrderLineItem
	containers map[string]map[string]int
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{
		orders:     make(map[string]map[string]domain.OrderLineItem),
		containers: make(map[string]map[string]int),
	}
}

// PutOrderLine adds or replaces an order line
func (d *Directory) PutOrderLine(line domain.OrderLineItem) {
	d.mu.Lock()
	defer d.mu.Unlock()

	lines, ok := d.orders[line.OrderID]
	if !ok {
		lines = make(map[string]domain.OrderLineItem)
		d.orders[line.OrderID] = lines
	}
	lines[line.ItemCode] = line
}

// PutContainer replaces a container's per-product stock
func (d *Directory) PutContainer(containerID string, stock map[string]int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	copied := make(map[string]int, len(stock))
	for product, qty := range stock {
		copied[product] = qty
	}
	d.containers[containerID] = copied
}

func (d *Directory) GetOrderLineItem(_ context.Context, orderID, itemCode string) (*domain.OrderLineItem, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	line, ok := d.orders[orderID][itemCode]
	if !ok {
		return nil, domain.ErrOrderLineNotFound
	}
	return &line, nil
}

func (d *Directory) ListOrderLineItems(_ context.Context, orderID string) ([]*domain.OrderLineItem, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	lines, ok := d.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderLineNotFound
	}

	items := make([]*domain.OrderLineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, &line)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemCode < items[j].ItemCode })
	return items, nil
}

func (d *Directory) GetContainerQuantity(_ context.Context, containerID, productCode string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stock, ok := d.containers[containerID]
	if !ok {
		return 0, domain.ErrContainerNotFound
	}
	qty, ok := stock[productCode]
	if !ok {
		return 0, domain.ErrProductNotInContainer
	}
	return qty, nil
}
