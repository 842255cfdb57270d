package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/gemdeals/internal/domain"
)

type DealStore struct{ db *gorm.DB }

func NewDealStore(db *gorm.DB) *DealStore { return &DealStore{db: db} }

// ApplyBatch corre todo el archivo dentro de una sola transacción: clientes y
// gemas se crean por nombre si no existen, y cada deal se upsertea por
// (customer_id, date). Un error en cualquier fila revierte el lote completo.
// La coordinación entre ingestas concurrentes queda delegada al aislamiento
// del store.
func (s *DealStore) ApplyBatch(ctx context.Context, rows []domain.DealInput) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customers := map[string]uuid.UUID{}
		gems := map[string]uuid.UUID{}

		for _, row := range rows {
			customerID, ok := customers[row.Customer]
			if !ok {
				id, err := getOrCreateCustomer(tx, row.Customer)
				if err != nil {
					return err
				}
				customerID = id
				customers[row.Customer] = id
			}

			itemID, ok := gems[row.Item]
			if !ok {
				id, err := getOrCreateGem(tx, row.Item)
				if err != nil {
					return err
				}
				itemID = id
				gems[row.Item] = id
			}

			if err := upsertDeal(tx, customerID, itemID, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func getOrCreateCustomer(tx *gorm.DB, username string) (uuid.UUID, error) {
	var c domain.Customer
	err := tx.Where("username = ?", username).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c = domain.Customer{ID: uuid.New(), Username: username}
		if err := tx.Create(&c).Error; err != nil {
			return uuid.Nil, err
		}
		return c.ID, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	return c.ID, nil
}

func getOrCreateGem(tx *gorm.DB, name string) (uuid.UUID, error) {
	var g domain.Gem
	err := tx.Where("name = ?", name).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		g = domain.Gem{ID: uuid.New(), Name: name}
		if err := tx.Create(&g).Error; err != nil {
			return uuid.Nil, err
		}
		return g.ID, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	return g.ID, nil
}

// upsertDeal: una re-subida del mismo par (customer, date) se toma como
// corrección y pisa item, total_cost y quantity en lugar de duplicar la fila.
func upsertDeal(tx *gorm.DB, customerID, itemID uuid.UUID, row domain.DealInput) error {
	var d domain.Deal
	err := tx.Where("customer_id = ? AND date = ?", customerID, row.Date).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		d = domain.Deal{
			ID:         uuid.New(),
			CustomerID: customerID,
			ItemID:     itemID,
			Quantity:   row.Quantity,
			TotalCost:  row.Total,
			Date:       row.Date,
		}
		return tx.Create(&d).Error
	}
	if err != nil {
		return err
	}

	d.ItemID = itemID
	d.TotalCost = row.Total
	d.Quantity = row.Quantity
	return tx.Save(&d).Error
}

// ListRows pagina las deals con sus nombres ya resueltos, para el export.
func (s *DealStore) ListRows(ctx context.Context, page, pageSize int) ([]domain.DealRow, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 200
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Deal{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []domain.DealRow
	err := s.db.WithContext(ctx).
		Table("deals").
		Select("customers.username AS customer, gems.name AS item, deals.total_cost, deals.quantity, deals.date").
		Joins("JOIN customers ON customers.id = deals.customer_id").
		Joins("JOIN gems ON gems.id = deals.item_id").
		Order("deals.date, customers.username").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
