//go:build e2e

package store

import (
	"context"
	"errors"
	"testing"

	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/psyche"
)

// startPostgres starts a PostgreSQL testcontainer, returns DSN + cleanup func.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("genius_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("pg connection string: %v", err)
	}
	return dsn
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(ctx, t)

	s, err := NewPostgres(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(s.Close)

	if err := s.Migrate(ctx, "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	p := psyche.New("Morgan", "analytical")
	p.TensionLevel = 30
	p.Goal = "get the project back on track"
	p.StressfulPhrases = []string{"missed the deadline"}
	p.AddMemory("We missed the deadline again.", "Walk me through what happened.")

	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(ctx, "MORGAN")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TensionLevel != 30 || got.Goal != p.Goal || len(got.Memories) != 1 {
		t.Errorf("got %+v", got)
	}

	// Upsert replaces the document.
	p.TensionLevel = 55
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	got, err = s.Load(ctx, "morgan")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.TensionLevel != 55 {
		t.Errorf("tension = %d after upsert", got.TensionLevel)
	}

	names, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 || names[0] != "morgan" {
		t.Errorf("names = %v", names)
	}

	if err := s.Delete(ctx, "Morgan"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Load(ctx, "morgan"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v after delete", err)
	}
}
