package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/store"
	"github.com/Assassin199108/pokemon-agent-backend/models"
)

const testSchema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS pokemon_extractions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name TEXT NOT NULL,
    source_url TEXT NOT NULL,
    data JSONB NOT NULL,
    quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_pokemon_extractions_name
    ON pokemon_extractions (lower(name), created_at DESC);
`

func sampleData(name string) *models.PokemonData {
	return &models.PokemonData{
		BasicInfo: models.BasicInfo{Name: name, DexNumber: "025", Height: "0.4m", Weight: "6.0kg", Category: "鼠宝可梦"},
		Types:     []string{"电"},
		Abilities: []string{"静电"},
		BaseStats: map[string]string{
			"hp": "35", "attack": "55", "defense": "40",
			"special_attack": "50", "special_defense": "50", "speed": "90",
		},
		EvolutionChain: "皮丘 → 皮卡丘 → 雷丘",
		GameInfo:       models.GameInfo{Generation: "第一世代", VersionDebut: "红/绿"},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase("pokedex"),
		tcPostgres.WithUsername("pokedex"),
		tcPostgres.WithPassword("pokedex"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://pokedex:pokedex@%s:%s/pokedex?sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.ExecContext(ctx, testSchema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	_ = db.Close()

	st, err := store.New(ctx, config.PostgresConfig{URL: dsn})
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	defer st.Close()

	id, err := st.SaveExtraction(ctx, store.ExtractionRecord{
		Name:         "皮卡丘",
		SourceURL:    "https://wiki.52poke.com/wiki/皮卡丘",
		Data:         sampleData("皮卡丘"),
		QualityScore: 0.95,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	if _, err := st.SaveExtraction(ctx, store.ExtractionRecord{
		Name:         "皮卡丘",
		SourceURL:    "https://serebii.net/pokedex/025.shtml",
		Data:         sampleData("皮卡丘"),
		QualityScore: 0.75,
	}); err != nil {
		t.Fatalf("save second: %v", err)
	}

	latest, err := st.LatestByName(ctx, "皮卡丘")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Data == nil || latest.Data.BasicInfo.Name != "皮卡丘" {
		t.Fatalf("round trip lost data: %+v", latest)
	}
	if latest.Data.BaseStats["speed"] != "90" {
		t.Fatalf("base stats lost: %v", latest.Data.BaseStats)
	}

	history, err := st.History(ctx, "皮卡丘", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d, want 2", len(history))
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.MaxQuality != 0.95 || stats.MinQuality != 0.75 {
		t.Fatalf("stats = %+v", stats)
	}

	if _, err := st.LatestByName(ctx, "does-not-exist"); !errors.Is(err, models.ErrExtractionNotFound) {
		t.Fatalf("expected ErrExtractionNotFound, got %v", err)
	}

	pruned, err := st.PruneOlderThan(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("pruned = %d, want 2", pruned)
	}
}
