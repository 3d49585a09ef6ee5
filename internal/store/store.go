package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartify/catalog-scraper/internal/models"
)

// ErrDuplicateProduct is returned when a record with the same source
// URL or the same name+brand pair already exists.
var ErrDuplicateProduct = errors.New("product already exists")

type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
}

// Store persists sanitized records. The pipeline itself never
// deduplicates against prior runs; uniqueness is enforced here at
// insert time.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLife > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLife
	}
	if cfg.MaxConnIdle > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdle
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// SaveProduct inserts a sanitized record attributed to the given actor.
// Fails with ErrDuplicateProduct when the source URL or the name+brand
// pair is already cataloged.
func (s *Store) SaveProduct(ctx context.Context, record *models.SanitizedProduct, actor string) error {
	exists, err := s.productExists(ctx, record)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProduct, record.SourceURL)
	}

	imagesJSON, err := json.Marshal(record.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}
	specsJSON, err := json.Marshal(record.Specifications)
	if err != nil {
		return fmt.Errorf("failed to marshal specifications: %w", err)
	}
	featuresJSON, err := json.Marshal(record.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}
	tagsJSON, err := json.Marshal(record.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		INSERT INTO products (
			name, description, short_description,
			price, original_price, needs_price_entry, gst_rate,
			category, brand, sku,
			images, specifications, features, tags,
			meta_title, meta_description,
			source_url, scraped_at, created_by, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, CURRENT_TIMESTAMP
		)`

	_, err = s.pool.Exec(ctx, query,
		record.Name, record.Description, record.ShortDescription,
		record.Price, record.OriginalPrice, record.NeedsPriceEntry, record.GST.Rate,
		record.Category, record.Brand, record.SKU,
		imagesJSON, specsJSON, featuresJSON, tagsJSON,
		record.SEO.MetaTitle, record.SEO.MetaDescription,
		record.SourceURL, record.ScrapedAt, actor,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	return nil
}

func (s *Store) productExists(ctx context.Context, record *models.SanitizedProduct) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM products
			WHERE source_url = $1 OR (name = $2 AND brand = $3)
		)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, record.SourceURL, record.Name, record.Brand).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return exists, nil
}

// GetProductBySKU fetches a cataloged record for operational lookups.
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.SanitizedProduct, error) {
	query := `
		SELECT name, description, short_description,
			price, original_price, needs_price_entry, gst_rate,
			category, brand, sku,
			images, specifications, features, tags,
			meta_title, meta_description,
			source_url, scraped_at
		FROM products
		WHERE sku = $1`

	var (
		record    models.SanitizedProduct
		imagesRaw []byte
		specsRaw  []byte
		featsRaw  []byte
		tagsRaw   []byte
	)

	err := s.pool.QueryRow(ctx, query, sku).Scan(
		&record.Name, &record.Description, &record.ShortDescription,
		&record.Price, &record.OriginalPrice, &record.NeedsPriceEntry, &record.GST.Rate,
		&record.Category, &record.Brand, &record.SKU,
		&imagesRaw, &specsRaw, &featsRaw, &tagsRaw,
		&record.SEO.MetaTitle, &record.SEO.MetaDescription,
		&record.SourceURL, &record.ScrapedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if err := json.Unmarshal(imagesRaw, &record.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images: %w", err)
	}
	if err := json.Unmarshal(specsRaw, &record.Specifications); err != nil {
		return nil, fmt.Errorf("failed to unmarshal specifications: %w", err)
	}
	if err := json.Unmarshal(featsRaw, &record.Features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal features: %w", err)
	}
	if err := json.Unmarshal(tagsRaw, &record.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}

	return &record, nil
}
