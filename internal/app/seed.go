package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	"github.com/vladislavdragonenkov/ordercore/internal/storage/memory"
)

// seedDemoCatalog добавляет клиента и несколько товаров для ручной проверки API.
func seedDemoCatalog(store *memory.Store, logger *log.Entry) {
	customer := store.AddCustomer(domain.Customer{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Address: "12 St James's Square, London",
	})

	products := []domain.Product{
		{Name: "Widget A", SKU: "WID-A", PriceCents: 1999, Quantity: 100},
		{Name: "Gadget X", SKU: "GAD-X", PriceCents: 4999, Quantity: 25},
		{Name: "Doohickey", SKU: "DOO-1", PriceCents: 299, Quantity: 1000},
	}
	for _, p := range products {
		p = store.AddProduct(p)
		logger.WithFields(log.Fields{"product_id": p.ID, "sku": p.SKU, "stock": p.Quantity}).Debug("demo product seeded")
	}

	logger.WithFields(log.Fields{
		"customer_id": customer.ID,
		"products":    len(products),
	}).Info("demo catalog seeded")
}
