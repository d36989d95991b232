package server

import (
	"context"
	"database/sql"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantPinger probes the Qdrant vector store.
type QdrantPinger struct {
	Client *qdrant.Client
}

func (p *QdrantPinger) Name() string { return "qdrant" }

func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.Client.HealthCheck(ctx)
	return err
}

// SQLitePinger probes a SQLite database handle.
type SQLitePinger struct {
	// Label distinguishes multiple databases in the readiness response.
	Label string
	DB    *sql.DB
}

func (p *SQLitePinger) Name() string {
	if p.Label != "" {
		return p.Label
	}
	return "sqlite"
}

func (p *SQLitePinger) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}
