// Command seed-db loads product and stock seed data into the kiosk database.
// Seed files are JSON, optionally gzip-compressed (".gz" suffix).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/cafe-kiosk/internal/domain/product"
	"github.com/xenking/cafe-kiosk/internal/repository"
)

type productJSON struct {
	ProductNumber string `json:"productNumber"`
	Type          string `json:"type"`
	SellingStatus string `json:"sellingStatus"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
}

type stockJSON struct {
	ProductNumber string `json:"productNumber"`
	Quantity      int64  `json:"quantity"`
}

const (
	upsertProductSQL = `
		INSERT INTO products (product_number, type, selling_status, name, price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_number) DO UPDATE SET
			type = EXCLUDED.type,
			selling_status = EXCLUDED.selling_status,
			name = EXCLUDED.name,
			price = EXCLUDED.price`

	upsertStockSQL = `
		INSERT INTO stocks (product_number, quantity)
		VALUES ($1, $2)
		ON CONFLICT (product_number) DO UPDATE SET
			quantity = EXCLUDED.quantity`
)

func main() {
	var (
		databaseURL  string
		productsFile string
		stocksFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.gz supported)")
	flag.StringVar(&stocksFile, "stocks-file", "db/seed/stocks.json", "path to stocks JSON file (.gz supported)")
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

	if err := run(ctx, databaseURL, productsFile, stocksFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, stocksFile string) error {
	// Read and validate both seed files concurrently before touching the
	// database.
	var (
		products []productJSON
		stocks   []stockJSON
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := decodeSeedFile(gctx, productsFile, &products); err != nil {
			return errors.Wrap(err, "read products file")
		}
		return validateProducts(products)
	})
	g.Go(func() error {
		if err := decodeSeedFile(gctx, stocksFile, &stocks); err != nil {
			return errors.Wrap(err, "read stocks file")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	// Stocks reference products by number, so they go in second.
	if err := seedStocks(ctx, pool, stocks); err != nil {
		return errors.Wrap(err, "seed stocks")
	}

	return nil
}

// decodeSeedFile reads a JSON seed file into v, transparently decompressing
// gzip files.
func decodeSeedFile(ctx context.Context, path string, v any) error {
	slog.Info("reading seed file", slog.String("path", path))

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}

	return nil
}

func validateProducts(products []productJSON) error {
	for _, p := range products {
		if !product.Type(p.Type).Valid() {
			return errors.Errorf("product %s: unknown type %q", p.ProductNumber, p.Type)
		}
		if !product.SellingStatus(p.SellingStatus).Valid() {
			return errors.Errorf("product %s: unknown selling status %q", p.ProductNumber, p.SellingStatus)
		}
		if p.Price < 0 {
			return errors.Errorf("product %s: negative price %d", p.ProductNumber, p.Price)
		}
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ProductNumber, p.Type, p.SellingStatus, p.Name, p.Price,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ProductNumber)
		}

		slog.Info("upserted product",
			slog.String("productNumber", p.ProductNumber),
			slog.String("name", p.Name))
	}

	return nil
}

func seedStocks(ctx context.Context, pool *pgxpool.Pool, stocks []stockJSON) error {
	slog.Info("upserting stocks", slog.Int("count", len(stocks)))

	for _, s := range stocks {
		if _, err := pool.Exec(ctx, upsertStockSQL, s.ProductNumber, s.Quantity); err != nil {
			return errors.Wrapf(err, "upsert stock %s", s.ProductNumber)
		}

		slog.Info("upserted stock",
			slog.String("productNumber", s.ProductNumber),
			slog.Int64("quantity", s.Quantity))
	}

	return nil
}
