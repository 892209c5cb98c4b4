package workload

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

type SeedConfig struct {
	Users    int
	Products int
	Reviews  int
	Orders   int

	ItemsPerOrder   int
	MaxItemQuantity int
	MaxInitialStock int
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		Users:           1000,
		Products:        1000,
		Reviews:         20000,
		Orders:          10000,
		ItemsPerOrder:   10,
		MaxItemQuantity: 10,
		MaxInitialStock: 50,
	}
}

// SeedReport counts what the seeder attempted and what stuck. Rejected
// reviews and orders are expected: duplicates and sold-out items.
type SeedReport struct {
	Users          int
	FirstProductID int64
	LastProductID  int64
	Reviews        int
	Orders         int
	Rejected       int
}

// WorkloadConfig returns a generator config targeting exactly the seeded
// users and products.
func (r SeedReport) WorkloadConfig(base Config) Config {
	base.Users = r.Users
	base.ProductBase = r.FirstProductID - 1
	base.Products = int(r.LastProductID - r.FirstProductID + 1)
	return base
}

// Seed populates shop with users user1..userN, products, reviews and orders.
// Business rejections are counted and skipped; any other error aborts.
func Seed(ctx context.Context, shop port.Storefront, cfg SeedConfig, r *rand.Rand) (SeedReport, error) {
	var report SeedReport
	switch {
	case cfg.Users <= 0 || cfg.Products <= 0:
		return report, fmt.Errorf("%w: seed needs users and products", service.ErrInvalidArgument)
	case cfg.MaxInitialStock < 0:
		return report, fmt.Errorf("%w: negative initial stock bound", service.ErrInvalidArgument)
	case cfg.Orders > 0 && (cfg.ItemsPerOrder <= 0 || cfg.MaxItemQuantity <= 0):
		return report, fmt.Errorf("%w: seeded orders need items", service.ErrInvalidArgument)
	}

	for i := 1; i <= cfg.Users; i++ {
		err := shop.CreateAccount(ctx, domain.User{
			Username:  Username(i),
			Password:  Password(i),
			FirstName: fmt.Sprintf("First-%d", i),
			LastName:  fmt.Sprintf("Last-%d", i),
		})
		if err != nil && !service.IsRejection(err) {
			return report, fmt.Errorf("seed user %d: %w", i, err)
		}
	}
	report.Users = cfg.Users

	for i := 0; i < cfg.Products; i++ {
		name := fmt.Sprintf("Product-%d", r.IntN(1000)+1)
		id, err := shop.AddProduct(ctx, name, "Description for "+name, randomPrice(r), r.IntN(cfg.MaxInitialStock+1))
		if err != nil {
			return report, fmt.Errorf("seed product: %w", err)
		}
		if report.FirstProductID == 0 {
			report.FirstProductID = id
		}
		report.LastProductID = id
	}

	product := func() int64 {
		return report.FirstProductID + int64(r.IntN(int(report.LastProductID-report.FirstProductID+1)))
	}
	user := func() int { return r.IntN(cfg.Users) + 1 }

	for i := 0; i < cfg.Reviews; i++ {
		u, id := user(), product()
		err := shop.PostReview(ctx, Username(u), Password(u), id, r.IntN(domain.MaxRating)+1, fmt.Sprintf("Review for product %d", id))
		switch {
		case err == nil:
			report.Reviews++
		case service.IsRejection(err):
			report.Rejected++
		default:
			return report, fmt.Errorf("seed review: %w", err)
		}
	}

	for i := 0; i < cfg.Orders; i++ {
		u := user()
		items := make([]domain.LineItem, 0, cfg.ItemsPerOrder)
		for j := 0; j < cfg.ItemsPerOrder; j++ {
			items = append(items, domain.LineItem{ProductID: product(), Quantity: r.IntN(cfg.MaxItemQuantity) + 1})
		}

		_, err := shop.SubmitOrder(ctx, Username(u), Password(u), items)
		switch {
		case err == nil:
			report.Orders++
		case service.IsRejection(err):
			report.Rejected++
		default:
			return report, fmt.Errorf("seed order: %w", err)
		}
	}

	return report, nil
}
