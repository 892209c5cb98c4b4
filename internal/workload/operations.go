package workload

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRejected
	OutcomeFailed
	OutcomeViolation
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeViolation:
		return "violation"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is what one executed operation reports back to the harness.
type Result struct {
	Kind Kind
	Err  error

	// Effects are the signed stock changes a successful operation applied.
	Effects []domain.LineItem

	// Violation describes an invariant breach the operation observed.
	Violation string
}

func (r Result) Outcome() Outcome {
	switch {
	case r.Violation != "":
		return OutcomeViolation
	case r.Err == nil:
		return OutcomeSuccess
	case service.IsRejection(r.Err):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

type Operation struct {
	Kind Kind
	run  func(ctx context.Context, shop port.Storefront) Result
}

func (o Operation) Execute(ctx context.Context, shop port.Storefront) Result {
	res := o.run(ctx, shop)
	res.Kind = o.Kind
	return res
}

var builders = map[Kind]builder{
	KindCreateAccount: buildCreateAccount,
	KindAddProduct:    buildAddProduct,
	KindRestock:       buildRestock,
	KindReadProduct:   buildReadProduct,
	KindAverageRating: buildAverageRating,
	KindSubmitOrder:   buildSubmitOrder,
	KindPostReview:    buildPostReview,
}

// buildCreateAccount draws from twice the seeded user range so roughly half
// of the attempts target a name that is still free.
func buildCreateAccount(g *Generator, r *rand.Rand) Operation {
	i := r.IntN(2*g.cfg.Users) + 1
	user := domain.User{
		Username:  Username(i),
		Password:  Password(i),
		FirstName: fmt.Sprintf("First-%d", r.IntN(1000)+1),
		LastName:  fmt.Sprintf("Last-%d", r.IntN(1000)+1),
	}

	return Operation{Kind: KindCreateAccount, run: func(ctx context.Context, shop port.Storefront) Result {
		return Result{Err: shop.CreateAccount(ctx, user)}
	}}
}

func buildAddProduct(g *Generator, r *rand.Rand) Operation {
	n := r.IntN(1000) + 1
	name := fmt.Sprintf("Product-%d", n)
	price := randomPrice(r)
	stock := r.IntN(g.cfg.MaxInitialStock + 1)

	return Operation{Kind: KindAddProduct, run: func(ctx context.Context, shop port.Storefront) Result {
		id, err := shop.AddProduct(ctx, name, "Description for "+name, price, stock)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Effects: []domain.LineItem{{ProductID: id, Quantity: stock}}}
	}}
}

func buildRestock(g *Generator, r *rand.Rand) Operation {
	id := g.productID(r)
	delta := r.IntN(g.cfg.MaxRestock) + 1

	return Operation{Kind: KindRestock, run: func(ctx context.Context, shop port.Storefront) Result {
		if err := shop.AddStock(ctx, id, delta); err != nil {
			return Result{Err: err}
		}
		return Result{Effects: []domain.LineItem{{ProductID: id, Quantity: delta}}}
	}}
}

func buildReadProduct(g *Generator, r *rand.Rand) Operation {
	id := g.productID(r)

	return Operation{Kind: KindReadProduct, run: func(ctx context.Context, shop port.Storefront) Result {
		details, err := shop.GetProductAndReviews(ctx, id)
		if err != nil {
			return Result{Err: err}
		}
		if details.Product.Stock < 0 {
			return Result{Violation: fmt.Sprintf("product %d has negative stock %d", id, details.Product.Stock)}
		}

		seen := make(map[string]bool, len(details.Reviews))
		for _, review := range details.Reviews {
			if review.ProductID != id || !domain.ValidRating(review.Rating) {
				return Result{Violation: fmt.Sprintf("product %d returned malformed review by %s", id, review.Username)}
			}
			if seen[review.Username] {
				return Result{Violation: fmt.Sprintf("product %d has two reviews by %s", id, review.Username)}
			}
			seen[review.Username] = true
		}
		return Result{}
	}}
}

func buildAverageRating(g *Generator, r *rand.Rand) Operation {
	username := Username(g.userIndex(r))

	return Operation{Kind: KindAverageRating, run: func(ctx context.Context, shop port.Storefront) Result {
		avg, err := shop.GetAverageRating(ctx, username)
		if err != nil {
			return Result{Err: err}
		}
		if avg != 0 && (avg < domain.MinRating || avg > domain.MaxRating) {
			return Result{Violation: fmt.Sprintf("average rating %.3f of %s out of range", avg, username)}
		}
		return Result{}
	}}
}

// buildSubmitOrder draws ItemsPerOrder products; a product drawn twice keeps
// the last quantity, so orders may have fewer distinct items.
func buildSubmitOrder(g *Generator, r *rand.Rand) Operation {
	username, password := g.credentials(r)

	requested := make(map[int64]int, g.cfg.ItemsPerOrder)
	for i := 0; i < g.cfg.ItemsPerOrder; i++ {
		requested[g.productID(r)] = r.IntN(g.cfg.MaxItemQuantity) + 1
	}
	items := make([]domain.LineItem, 0, len(requested))
	for id, qty := range requested {
		items = append(items, domain.LineItem{ProductID: id, Quantity: qty})
	}

	return Operation{Kind: KindSubmitOrder, run: func(ctx context.Context, shop port.Storefront) Result {
		order, err := shop.SubmitOrder(ctx, username, password, items)
		if err != nil {
			return Result{Err: err}
		}

		effects := make([]domain.LineItem, 0, len(order.Items))
		for _, item := range order.Items {
			effects = append(effects, domain.LineItem{ProductID: item.ProductID, Quantity: -item.Quantity})
		}

		res := Result{Effects: effects}
		if !maps.Equal(domain.TotalQuantity(order.Items), requested) {
			res.Violation = fmt.Sprintf("order %d items differ from the request", order.ID)
		}
		return res
	}}
}

func buildPostReview(g *Generator, r *rand.Rand) Operation {
	username, password := g.credentials(r)
	id := g.productID(r)
	rating := r.IntN(domain.MaxRating) + 1

	return Operation{Kind: KindPostReview, run: func(ctx context.Context, shop port.Storefront) Result {
		err := shop.PostReview(ctx, username, password, id, rating, fmt.Sprintf("Review for product %d", id))
		return Result{Err: err}
	}}
}

func randomPrice(r *rand.Rand) decimal.Decimal {
	return decimal.NewFromFloat(1 + r.Float64()*99).Round(2)
}
