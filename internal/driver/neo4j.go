package driver

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/model"
)

// Neo4jDriver executes Cypher against a Neo4j (or Bolt-compatible) server.
type Neo4jDriver struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *zap.Logger
}

func NewNeo4jDriver(uri, username, password, database string, log *zap.Logger) (*Neo4jDriver, error) {
	d, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := d.VerifyConnectivity(context.Background()); err != nil {
		return nil, model.Faultf(model.ErrStoreUnavailable, "verify connectivity: %v", err)
	}

	log.Info("connected to graph store", zap.String("uri", uri), zap.String("database", database))
	return &Neo4jDriver{Driver: d, Database: database, log: log}, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(d.Database))
	if err != nil {
		if neo4j.IsConnectivityError(err) {
			return neo4j.EagerResult{}, model.Faultf(model.ErrStoreUnavailable, "%v", err)
		}
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}
