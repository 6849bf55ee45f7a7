package pricing

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/apperr"
)

// Catalog resolves test/service/shipping prices and the zone slot rates.
// Prices come from the catalog rows, never from the client.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// TestItems loads the requested tests as order items and returns the sum.
// An unknown or inactive test id fails the whole lookup.
func (c *Catalog) TestItems(ctx context.Context, ids []uint) ([]models.OrderItem, float64, error) {
	if len(ids) == 0 {
		return nil, 0, nil
	}

	var tests []models.LabTest
	if err := c.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&tests).Error; err != nil {
		return nil, 0, err
	}
	if len(tests) != len(dedupe(ids)) {
		return nil, 0, apperr.NotFound("One or more tests not found")
	}

	var items []models.OrderItem
	var total float64
	for _, t := range tests {
		items = append(items, models.OrderItem{
			ItemType: models.ItemTypeTest,
			RefID:    t.ID,
			Name:     t.Name,
			Price:    t.Price,
		})
		total += t.Price
	}
	return items, total, nil
}

func (c *Catalog) ServiceItems(ctx context.Context, ids []uint) ([]models.OrderItem, float64, error) {
	if len(ids) == 0 {
		return nil, 0, nil
	}

	var services []models.ClinicService
	if err := c.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&services).Error; err != nil {
		return nil, 0, err
	}
	if len(services) != len(dedupe(ids)) {
		return nil, 0, apperr.NotFound("One or more services not found")
	}

	var items []models.OrderItem
	var total float64
	for _, s := range services {
		items = append(items, models.OrderItem{
			ItemType: models.ItemTypeService,
			RefID:    s.ID,
			Name:     s.Name,
			Price:    s.Price,
		})
		total += s.Price
	}
	return items, total, nil
}

func (c *Catalog) ShippingCharge(ctx context.Context, id uint) (float64, error) {
	if id == 0 {
		return 0, nil
	}
	var shipping models.ShippingType
	err := c.db.WithContext(ctx).First(&shipping, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperr.NotFound("Shipping type not found")
	}
	if err != nil {
		return 0, err
	}
	return shipping.Price, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
