// Package workload produces the weighted random operation stream the
// benchmark drives against a storefront.
package workload

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

type Kind string

const (
	KindCreateAccount Kind = "create_account"
	KindAddProduct    Kind = "add_product"
	KindRestock       Kind = "restock"
	KindReadProduct   Kind = "read_product"
	KindAverageRating Kind = "average_rating"
	KindSubmitOrder   Kind = "submit_order"
	KindPostReview    Kind = "post_review"
)

// Kinds lists every operation in table order.
var Kinds = []Kind{
	KindCreateAccount,
	KindAddProduct,
	KindRestock,
	KindReadProduct,
	KindAverageRating,
	KindSubmitOrder,
	KindPostReview,
}

// Weights is the relative frequency of each operation. Weights need not
// sum to one.
type Weights map[Kind]float64

func DefaultWeights() Weights {
	return Weights{
		KindCreateAccount: 0.03,
		KindAddProduct:    0.02,
		KindRestock:       0.10,
		KindReadProduct:   0.65,
		KindAverageRating: 0.05,
		KindSubmitOrder:   0.10,
		KindPostReview:    0.05,
	}
}

func (w Weights) Validate() error {
	total := 0.0
	for kind, weight := range w {
		if _, ok := builders[kind]; !ok {
			return fmt.Errorf("unknown operation %q", kind)
		}
		if weight < 0 {
			return fmt.Errorf("negative weight for %s", kind)
		}
		total += weight
	}
	if total <= 0 {
		return errors.New("weights must have a positive sum")
	}
	return nil
}

// Share returns the normalized probability of kind.
func (w Weights) Share(kind Kind) float64 {
	total := 0.0
	for _, weight := range w {
		total += weight
	}
	if total == 0 {
		return 0
	}
	return w[kind] / total
}

type Config struct {
	Weights Weights

	// Users and products are drawn from user1..userN and
	// ProductBase+1..ProductBase+Products, a deliberately small key space.
	Users       int
	Products    int
	ProductBase int64

	ItemsPerOrder   int
	MaxItemQuantity int
	MaxRestock      int
	MaxInitialStock int

	// BadCredentialRate is the share of authorized operations sent with a
	// wrong password.
	BadCredentialRate float64
}

func DefaultConfig() Config {
	return Config{
		Weights:           DefaultWeights(),
		Users:             1000,
		Products:          1000,
		ItemsPerOrder:     10,
		MaxItemQuantity:   10,
		MaxRestock:        10,
		MaxInitialStock:   50,
		BadCredentialRate: 0.1,
	}
}

func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	switch {
	case c.Users <= 0, c.Products <= 0:
		return errors.New("users and products must be positive")
	case c.ItemsPerOrder <= 0, c.MaxItemQuantity <= 0, c.MaxRestock <= 0:
		return errors.New("order size, item quantity and restock bounds must be positive")
	case c.MaxInitialStock < 0:
		return errors.New("max initial stock must not be negative")
	case c.BadCredentialRate < 0 || c.BadCredentialRate > 1:
		return errors.New("bad credential rate must be within [0, 1]")
	}
	return nil
}

type builder func(g *Generator, r *rand.Rand) Operation

type entry struct {
	cumulative float64
	kind       Kind
	build      builder
}

// Generator samples operations from a cumulative weight table. It holds no
// mutable state, so one generator serves every worker; each worker brings
// its own *rand.Rand.
type Generator struct {
	cfg   Config
	table []entry
	total float64
}

func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload config: %w", err)
	}

	g := &Generator{cfg: cfg}
	for _, kind := range Kinds {
		weight := cfg.Weights[kind]
		if weight == 0 {
			continue
		}
		g.total += weight
		g.table = append(g.table, entry{cumulative: g.total, kind: kind, build: builders[kind]})
	}
	return g, nil
}

func (g *Generator) Config() Config { return g.cfg }

// Next draws one operation with its parameters.
func (g *Generator) Next(r *rand.Rand) Operation {
	x := r.Float64() * g.total
	i := sort.Search(len(g.table), func(i int) bool { return g.table[i].cumulative > x })
	if i == len(g.table) {
		i--
	}
	return g.table[i].build(g, r)
}

func (g *Generator) userIndex(r *rand.Rand) int {
	return r.IntN(g.cfg.Users) + 1
}

func (g *Generator) productID(r *rand.Rand) int64 {
	return g.cfg.ProductBase + int64(r.IntN(g.cfg.Products)) + 1
}

// credentials returns user i's login, with a wrong password at
// BadCredentialRate.
func (g *Generator) credentials(r *rand.Rand) (string, string) {
	i := g.userIndex(r)
	password := Password(i)
	if r.Float64() < g.cfg.BadCredentialRate {
		password = Password(i + 1 + r.IntN(g.cfg.Users))
	}
	return Username(i), password
}

func Username(i int) string { return fmt.Sprintf("user%d", i) }
func Password(i int) string { return fmt.Sprintf("password%d", i) }
