package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/spigell/career-twin/internal/ai"
	"github.com/spigell/career-twin/internal/interview"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var _ interview.ProfileIndex = (*PGVectorIndex)(nil)

var collectionName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ProfileVector is one indexed candidate profile.
type ProfileVector struct {
	CandidateID string          `gorm:"primaryKey;type:text"`
	Name        string          `gorm:"type:text"`
	Skills      string          `gorm:"type:text"`
	Roles       string          `gorm:"type:text"`
	Embedding   pgvector.Vector `gorm:"type:vector(1536)"`
	UpdatedAt   time.Time
}

// DefaultCollection is the table holding profile vectors.
const DefaultCollection = "career_twin_profiles"

// PGVectorIndex stores profile vectors in Postgres with the pgvector extension.
type PGVectorIndex struct {
	db    *gorm.DB
	table string
}

// OpenPGVectorIndex connects to dsn, enables the vector extension and migrates
// the collection table.
func OpenPGVectorIndex(dsn, collection string) (*PGVectorIndex, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	if !collectionName.MatchString(collection) {
		return nil, fmt.Errorf("%w: collection %q is not a valid table name", interview.ErrInvalidInput, collection)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("could not get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("enable vector extension: %w", err)
	}

	if err := db.Table(collection).AutoMigrate(&ProfileVector{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &PGVectorIndex{db: db, table: collection}, nil
}

func (x *PGVectorIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if len(vector) != ai.EmbeddingDimensions {
		return fmt.Errorf("%w: vector has %d dimensions, want %d", interview.ErrInvalidInput, len(vector), ai.EmbeddingDimensions)
	}

	row := ProfileVector{
		CandidateID: id,
		Name:        metadata["name"],
		Skills:      metadata["skills"],
		Roles:       metadata["roles"],
		Embedding:   pgvector.NewVector(vector),
		UpdatedAt:   time.Now(),
	}

	return x.db.WithContext(ctx).Table(x.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "skills", "roles", "embedding", "updated_at"}),
	}).Create(&row).Error
}

// Query orders by L2 distance, nearest first.
func (x *PGVectorIndex) Query(ctx context.Context, vector []float32, k int) ([]string, error) {
	if k <= 0 {
		return []string{}, nil
	}

	var ids []string
	query := fmt.Sprintf(`
		SELECT candidate_id
		FROM %s
		ORDER BY embedding <-> ?
		LIMIT ?
	`, x.table)

	err := x.db.WithContext(ctx).Raw(query, pgvector.NewVector(vector), k).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("query profile vectors: %w", err)
	}

	return ids, nil
}

func (x *PGVectorIndex) Close() error {
	sqlDB, err := x.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
