// Command seed-db provisions a development database: demo users, a small
// product catalog with size/colour variants, and the schema itself.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/souq-marketplace/internal/domain/catalog"
	"github.com/xenking/souq-marketplace/internal/storage/postgres"
)

type variantJSON struct {
	Size           string          `json:"size"`
	Colour         string          `json:"colour"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	MarketPrice    decimal.Decimal `json:"market_price"`
	ActualBuyPrice decimal.Decimal `json:"actual_buy_price"`
	CODEligible    bool            `json:"cod_eligible"`
}

type productJSON struct {
	ID          string          `json:"id"`
	SellerID    string          `json:"seller_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	MarketPrice decimal.Decimal `json:"market_price"`
	CODEligible bool            `json:"cod_eligible"`
	Variants    []variantJSON   `json:"variants"`
}

type userJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type seedFile struct {
	Users    []userJSON    `json:"users"`
	Products []productJSON `json:"products"`
}

func main() {
	var (
		databaseURL string
		dataFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dataFile, "data-file", "db/seed/marketplace.json", "path to seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, dataFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, dataFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("reading seed file", slog.String("path", dataFile))

	data, err := os.ReadFile(dataFile)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	store := postgres.NewStore(pool)

	slog.Info("upserting users", slog.Int("count", len(seed.Users)))
	for _, u := range seed.Users {
		if _, err := pool.Exec(ctx, upsertUserSQL, u.ID, u.Name, u.Email, u.Role); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.ID)
		}
		slog.Info("upserted user", slog.String("id", u.ID), slog.String("role", u.Role))
	}

	slog.Info("upserting products", slog.Int("count", len(seed.Products)))
	for _, p := range seed.Products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.SellerID, p.Name, p.Price, p.MarketPrice, p.CODEligible,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		variants := make([]catalog.Variant, 0, len(p.Variants))
		for _, v := range p.Variants {
			variants = append(variants, catalog.Variant{
				Size:           v.Size,
				Colour:         v.Colour,
				Quantity:       v.Quantity,
				Price:          v.Price,
				MarketPrice:    v.MarketPrice,
				ActualBuyPrice: v.ActualBuyPrice,
				CODEligible:    v.CODEligible,
			})
		}
		if err := store.Products().ReplaceVariants(ctx, p.ID, variants); err != nil {
			return errors.Wrapf(err, "replace variants for product %s", p.ID)
		}

		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.Int("variants", len(variants)),
		)
	}

	return nil
}

const upsertUserSQL = `
INSERT INTO users (id, name, email, role)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role`

const upsertProductSQL = `
INSERT INTO products (id, seller_id, name, price, market_price, cod_eligible, active)
VALUES ($1, $2, $3, $4, $5, $6, TRUE)
ON CONFLICT (id) DO UPDATE SET
	seller_id = EXCLUDED.seller_id,
	name = EXCLUDED.name,
	price = EXCLUDED.price,
	market_price = EXCLUDED.market_price,
	cod_eligible = EXCLUDED.cod_eligible,
	active = TRUE`
