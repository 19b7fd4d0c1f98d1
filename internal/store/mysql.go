package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the MySQL catalog backend.
type Config struct {
	// DSN is the MySQL data source name, for example
	// "user:pass@tcp(localhost:3306)/mediad?charset=utf8mb4&parseTime=True&loc=Local".
	DSN string

	// MaxOpenConns caps the connection pool. Default: 25.
	MaxOpenConns int

	// ConnMaxLifetime recycles connections. Default: 5 minutes.
	ConnMaxLifetime time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("%w: dsn required", ErrInvalidConfig)
	}
	return nil
}

// SQLMediaStore is the MySQL-backed catalog.
type SQLMediaStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ MediaStore = (*SQLMediaStore)(nil)

// Open connects to MySQL, migrates the schema, and returns the store.
func Open(config Config, zlog *zap.Logger) (*SQLMediaStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if zlog == nil {
		zlog = zap.NewNop()
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(mysql.Open(config.DSN), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("%w: opening mysql: %v", ErrUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: pool handle: %v", ErrUnavailable, err)
	}
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := db.AutoMigrate(&MediaRecord{}); err != nil {
		return nil, fmt.Errorf("%w: migrating schema: %v", ErrUnavailable, err)
	}

	zlog.Info("media store ready", zap.Int("max_open_conns", config.MaxOpenConns))
	return &SQLMediaStore{db: db, logger: zlog}, nil
}

// NewSQLMediaStore wraps an existing gorm handle. Used by tests and by
// callers that manage the connection themselves.
func NewSQLMediaStore(db *gorm.DB, zlog *zap.Logger) *SQLMediaStore {
	if zlog == nil {
		zlog = zap.NewNop()
	}
	return &SQLMediaStore{db: db, logger: zlog}
}

func (s *SQLMediaStore) Create(ctx context.Context, rec *MediaRecord) error {
	if err := requireTenant(rec.TenantID); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: record id required", ErrInvalidConfig)
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("%w: creating record: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLMediaStore) Get(ctx context.Context, tenantID, id string) (*MediaRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	var rec MediaRecord
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: fetching record: %v", ErrUnavailable, err)
	}
	return &rec, nil
}

// FindCandidates does a coarse LIKE prefilter over filename, title, and
// tags. Relevance ranking happens in the caller; this only narrows the
// candidate set inside the tenant partition.
func (s *SQLMediaStore) FindCandidates(ctx context.Context, tenantID string, tokens []string, filter ListFilter) ([]MediaRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return []MediaRecord{}, nil
	}

	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	q = applyFilter(q, filter)

	match := s.db.Session(&gorm.Session{NewDB: true})
	for _, tok := range tokens {
		pattern := "%" + escapeLike(tok) + "%"
		match = match.Or("LOWER(filename) LIKE ? OR LOWER(title) LIKE ? OR LOWER(tags) LIKE ?",
			pattern, pattern, pattern)
	}
	q = q.Where(match)

	var recs []MediaRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: searching records: %v", ErrUnavailable, err)
	}
	return recs, nil
}

func (s *SQLMediaStore) List(ctx context.Context, tenantID string, filter ListFilter) ([]MediaRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	q = applyFilter(q, filter).Order("created_at DESC")

	var recs []MediaRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: listing records: %v", ErrUnavailable, err)
	}
	return recs, nil
}

func (s *SQLMediaStore) Delete(ctx context.Context, tenantID, id string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&MediaRecord{})
	if res.Error != nil {
		return fmt.Errorf("%w: deleting record: %v", ErrUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLMediaStore) DeleteByTenant(ctx context.Context, tenantID string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&MediaRecord{}).Error
	if err != nil {
		return fmt.Errorf("%w: deleting tenant records: %v", ErrUnavailable, err)
	}
	return nil
}

func applyFilter(q *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Album != "" {
		q = q.Where("album = ?", filter.Album)
	}
	if !filter.CreatedAfter.IsZero() {
		q = q.Where("created_at >= ?", filter.CreatedAfter)
	}
	if !filter.CreatedBefore.IsZero() {
		q = q.Where("created_at < ?", filter.CreatedBefore)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return q
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
