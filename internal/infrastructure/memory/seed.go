package memory

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wms-platform/transfer-service/internal/domain"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed describes the slot grid and the read-only directories
type Seed struct {
	Zones      []ZoneSeed      `yaml:"zones"`
	Orders     []OrderSeed     `yaml:"orders"`
	Containers []ContainerSeed `yaml:"containers"`
}

// ZoneSeed is a rows x cols grid; Occupied lists slots holding unrelated stock
type ZoneSeed struct {
	Name     string   `yaml:"name"`
	Rows     int      `yaml:"rows"`
	Cols     int      `yaml:"cols"`
	Occupied []string `yaml:"occupied"`
}

type OrderSeed struct {
	OrderID string     `yaml:"orderId"`
	Lines   []LineSeed `yaml:"lines"`
}

type LineSeed struct {
	ItemCode        string `yaml:"itemCode"`
	ProductName     string `yaml:"productName"`
	OrderedQuantity int    `yaml:"orderedQuantity"`
}

type ContainerSeed struct {
	ID    string            `yaml:"id"`
	Kind  domain.SourceKind `yaml:"kind"`
	Stock map[string]int    `yaml:"stock"`
}

// LoadSeed reads a seed file; an empty path selects the built-in sample
func LoadSeed(path string) (*Seed, error) {
	data := defaultSeed
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates a seed document
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	for _, z := range seed.Zones {
		if z.Name == "" || z.Rows <= 0 || z.Cols <= 0 {
			return nil, fmt.Errorf("invalid zone %q: %dx%d", z.Name, z.Rows, z.Cols)
		}
		for _, raw := range z.Occupied {
			id, err := domain.ParseSlotID(raw)
			if err != nil {
				return nil, err
			}
			if id.Zone() != z.Name {
				return nil, fmt.Errorf("occupied slot %s is outside zone %s", id, z.Name)
			}
		}
	}
	for _, c := range seed.Containers {
		if c.ID == "" || !c.Kind.IsValid() {
			return nil, fmt.Errorf("invalid container %q of kind %q", c.ID, c.Kind)
		}
	}
	return &seed, nil
}

// Slots expands the zones into grid slots
func (s *Seed) Slots() []*domain.Slot {
	var slots []*domain.Slot
	for _, z := range s.Zones {
		occupied := make(map[string]bool, len(z.Occupied))
		for _, id := range z.Occupied {
			occupied[id] = true
		}
		for row := 1; row <= z.Rows; row++ {
			for col := 1; col <= z.Cols; col++ {
				id := domain.NewSlotID(z.Name, row, col)
				slots = append(slots, domain.NewSlot(z.Name, row, col, occupied[string(id)]))
			}
		}
	}
	return slots
}

// Apply loads the directories and makes sure every grid slot exists in the slot store
func (s *Seed) Apply(ctx context.Context, dir *Directory, slots domain.SlotRepository) error {
	for _, o := range s.Orders {
		for _, l := range o.Lines {
			dir.PutOrderLine(domain.OrderLineItem{
				OrderID:         o.OrderID,
				ItemCode:        l.ItemCode,
				ProductName:     l.ProductName,
				OrderedQuantity: l.OrderedQuantity,
			})
		}
	}
	for _, c := range s.Containers {
		dir.PutContainer(c.ID, c.Stock)
	}

	if err := slots.EnsureSlots(ctx, s.Slots()); err != nil {
		return fmt.Errorf("failed to seed slots: %w", err)
	}
	return nil
}
