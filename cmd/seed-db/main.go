// Command seed-db creates the schema and loads seed users, products, and API
// keys into the database. Seed files are JSON, optionally gzip-compressed
// (.json.gz).
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
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/farmdirect/market/internal/handler"
	"github.com/farmdirect/market/internal/repository"
)

type userJSON struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	APIKey string `json:"api_key"`
}

type productJSON struct {
	SellerEmail string          `json:"seller_email"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	Description string          `json:"description"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		usersFile    string
		productsFile string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&usersFile, "users-file", "db/seed/users.json", "path to users JSON file (.json or .json.gz)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.json or .json.gz)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or FARM_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("FARM_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, usersFile, productsFile, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, usersFile, productsFile, pepper string) error {
	// Parse both seed files concurrently before touching the database.
	var (
		users    []userJSON
		products []productJSON
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readSeedFile(gctx, usersFile, &users)
	})
	g.Go(func() error {
		return readSeedFile(gctx, productsFile, &products)
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

	idByEmail, err := seedUsers(ctx, pool, users, pepper)
	if err != nil {
		return errors.Wrap(err, "seed users")
	}

	if err := seedProducts(ctx, pool, products, idByEmail); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

// readSeedFile parses a JSON seed file into out, transparently decompressing
// files with a .gz suffix.
func readSeedFile(ctx context.Context, path string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Info("reading seed file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "open gzip %s", path)
		}
		defer gz.Close()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(out); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, users []userJSON, pepper string) (map[string]int64, error) {
	idByEmail := make(map[string]int64, len(users))

	for _, u := range users {
		var id int64
		err := pool.QueryRow(ctx,
			`INSERT INTO users (name, email, role) VALUES ($1, $2, $3)
			 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role
			 RETURNING id`,
			u.Name, u.Email, u.Role,
		).Scan(&id)
		if err != nil {
			return nil, errors.Wrapf(err, "insert user %s", u.Email)
		}
		idByEmail[u.Email] = id

		if u.APIKey == "" {
			continue
		}
		hash := handler.HashAPIKey(u.APIKey, []byte(pepper))
		_, err = pool.Exec(ctx,
			`INSERT INTO api_keys (id, key_hash, user_id, name)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (key_hash) DO NOTHING`,
			uuid.New().String(), hash, id, u.Name,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "insert api key for %s", u.Email)
		}
	}

	slog.Info("seeded users", slog.Int("count", len(users)))
	return idByEmail, nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON, idByEmail map[string]int64) error {
	for _, p := range products {
		sellerID, ok := idByEmail[p.SellerEmail]
		if !ok {
			return errors.Errorf("product %q references unknown seller %s", p.Name, p.SellerEmail)
		}
		_, err := pool.Exec(ctx,
			`INSERT INTO products (seller_id, name, category, price, unit, description, stock, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')`,
			sellerID, p.Name, p.Category, p.Price, p.Unit, p.Description, p.Stock,
		)
		if err != nil {
			return errors.Wrapf(err, "insert product %q", p.Name)
		}
	}

	slog.Info("seeded products", slog.Int("count", len(products)))
	return nil
}
