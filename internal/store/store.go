package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/models"
)

// Store persists successful extractions in Postgres
type Store struct {
	DB *sql.DB
}

// ExtractionRecord is one persisted extraction row
type ExtractionRecord struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	SourceURL    string              `json:"source_url"`
	Data         *models.PokemonData `json:"data"`
	QualityScore float64             `json:"quality_score"`
	CreatedAt    time.Time           `json:"created_at"`
}

// New opens the database and verifies connectivity
func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// SaveExtraction inserts one extraction, generating the id when empty
func (s *Store) SaveExtraction(ctx context.Context, rec ExtractionRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return "", err
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO pokemon_extractions (id, name, source_url, data, quality_score) VALUES ($1,$2,$3,$4,$5)`,
		rec.ID, rec.Name, rec.SourceURL, data, rec.QualityScore)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// LatestByName returns the most recent extraction for a pokemon name
func (s *Store) LatestByName(ctx context.Context, name string) (ExtractionRecord, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, source_url, data, quality_score, created_at
		 FROM pokemon_extractions WHERE lower(name)=lower($1)
		 ORDER BY created_at DESC LIMIT 1`, name)
	return scanRecord(row)
}

// History returns recent extractions for a pokemon name, newest first
func (s *Store) History(ctx context.Context, name string, limit int) ([]ExtractionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, source_url, data, quality_score, created_at
		 FROM pokemon_extractions WHERE lower(name)=lower($1)
		 ORDER BY created_at DESC LIMIT $2`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExtractionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats aggregates persisted quality scores
func (s *Store) Stats(ctx context.Context) (models.ExtractionStats, error) {
	var stats models.ExtractionStats
	err := s.DB.QueryRowContext(ctx,
		`SELECT count(*), coalesce(avg(quality_score),0), coalesce(min(quality_score),0), coalesce(max(quality_score),0)
		 FROM pokemon_extractions`).
		Scan(&stats.Total, &stats.AvgQuality, &stats.MinQuality, &stats.MaxQuality)
	if err != nil {
		return models.ExtractionStats{}, err
	}
	stats.Successful = stats.Total
	return stats, nil
}

// PruneOlderThan deletes rows past the retention window, returning how many
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM pokemon_extractions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ExtractionRecord, error) {
	var rec ExtractionRecord
	var data []byte
	err := row.Scan(&rec.ID, &rec.Name, &rec.SourceURL, &data, &rec.QualityScore, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ExtractionRecord{}, models.ErrExtractionNotFound
		}
		return ExtractionRecord{}, err
	}
	if len(data) > 0 {
		rec.Data = &models.PokemonData{}
		if err := json.Unmarshal(data, rec.Data); err != nil {
			return ExtractionRecord{}, err
		}
	}
	return rec, nil
}
