package carbsync

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/hejmattias/kolsync/models"
)

// Plate is the staged meal: food items with quantities, summed to a carb
// total. Device-local only — persisted under the plateItems key, never
// synced to the cloud, insertion order preserved.
type Plate struct {
	cache *CacheStore

	mu    sync.Mutex
	items []models.FoodItem
}

func NewPlate(cache *CacheStore) *Plate {
	p := &Plate{cache: cache}
	blob, ok, err := cache.Get(PlateItemsKey)
	if err != nil {
		log.Printf("Plate: failed to read cache: %v", err)
	}
	if ok && err == nil {
		if err := json.Unmarshal(blob, &p.items); err != nil {
			log.Printf("Plate: failed to decode cache: %v", err)
			p.items = nil
		}
	}
	return p
}

// AddItem stages an item, replacing any staged item with the same id.
func (p *Plate) AddItem(item models.FoodItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.items {
		if p.items[i].ID == item.ID {
			p.items[i] = item
			p.persist()
			return
		}
	}
	p.items = append(p.items, item)
	p.persist()
}

func (p *Plate) RemoveItem(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.items {
		if p.items[i].ID == id {
			p.items = append(p.items[:i], p.items[i+1:]...)
			p.persist()
			return
		}
	}
}

func (p *Plate) Empty() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
	p.persist()
}

func (p *Plate) Items() []models.FoodItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.FoodItem(nil), p.items...)
}

// TotalCarbs sums the staged quantities' carb content.
func (p *Plate) TotalCarbs() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0.0
	for _, item := range p.items {
		total += item.TotalCarbs()
	}
	return total
}

// persist runs with the mutex held.
func (p *Plate) persist() {
	blob, err := json.Marshal(p.items)
	if err != nil {
		log.Printf("Plate: failed to encode cache: %v", err)
		return
	}
	if err := p.cache.Put(PlateItemsKey, blob); err != nil {
		log.Printf("Plate: failed to write cache: %v", err)
	}
}
