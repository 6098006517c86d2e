package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/model"
)

type mockDriver struct {
	QueryExecuted string
	QueryParams   map[string]interface{}
	MockResult    neo4j.EagerResult
	Errs          []error
	Calls         int
}

func (m *mockDriver) ExecuteQuery(_ context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Calls++
	m.QueryExecuted = query
	m.QueryParams = params
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return neo4j.EagerResult{}, err
		}
	}
	return m.MockResult, nil
}

func (m *mockDriver) Close(_ context.Context) error {
	return nil
}

func passageRecord(id, text string) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"id", "text", "source_id", "position"},
		Values: []interface{}{id, text, "contract-1", int64(3)},
	}
}

func TestFulltextPassageSearchConversion(t *testing.T) {
	d := &mockDriver{
		MockResult: neo4j.EagerResult{Records: []*neo4j.Record{passageRecord("p1", "Clause text.")}},
	}
	store := NewStore(d, 3, zap.NewNop())

	passages, err := store.FulltextPassageSearch(context.Background(), "liability", 5)
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, model.Passage{ID: "p1", Text: "Clause text.", SourceID: "contract-1", Position: 3}, passages[0])
	assert.Equal(t, 5, d.QueryParams["k"])
}

func TestFulltextNodeSearchConversion(t *testing.T) {
	d := &mockDriver{
		MockResult: neo4j.EagerResult{Records: []*neo4j.Record{
			{
				Keys:   []string{"id", "name", "labels", "numeric_id"},
				Values: []interface{}{"n1", "liability cap", []interface{}{"Entity"}, int64(17)},
			},
		}},
	}
	store := NewStore(d, 3, zap.NewNop())

	nodes, err := store.FulltextNodeSearch(context.Background(), "liability", 5)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "liability cap", nodes[0].Name)
	assert.Equal(t, []string{"Entity"}, nodes[0].Labels)
	assert.Equal(t, int64(17), nodes[0].NumericID)
}

func TestStoreRetriesTransientFailure(t *testing.T) {
	d := &mockDriver{
		Errs:       []error{model.ErrStoreUnavailable, nil},
		MockResult: neo4j.EagerResult{Records: []*neo4j.Record{passageRecord("p1", "x")}},
	}
	store := NewStore(d, 3, zap.NewNop())

	passages, err := store.FulltextPassageSearch(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Len(t, passages, 1)
	assert.Equal(t, 2, d.Calls)
}

func TestStoreDoesNotRetryOtherErrors(t *testing.T) {
	d := &mockDriver{Errs: []error{errors.New("syntax error")}}
	store := NewStore(d, 5, zap.NewNop())

	_, err := store.FulltextPassageSearch(context.Background(), "q", 1)
	assert.Error(t, err)
	assert.Equal(t, 1, d.Calls)
}

func TestStoreSurfacesAfterRetriesExhausted(t *testing.T) {
	d := &mockDriver{Errs: []error{model.ErrStoreUnavailable, model.ErrStoreUnavailable}}
	store := NewStore(d, 2, zap.NewNop())

	_, err := store.FulltextPassageSearch(context.Background(), "q", 1)
	assert.True(t, errors.Is(err, model.ErrStoreUnavailable))
	assert.Equal(t, 2, d.Calls)
}

func TestNeighborsDepthSelectsQuery(t *testing.T) {
	d := &mockDriver{}
	store := NewStore(d, 1, zap.NewNop())

	_, err := store.Neighbors(context.Background(), "n1", 1, "MENTIONS")
	require.NoError(t, err)
	assert.Equal(t, NeighborsDepth1Query, d.QueryExecuted)
	assert.Equal(t, "MENTIONS", d.QueryParams["type"])

	_, err = store.Neighbors(context.Background(), "n1", 2, "")
	require.NoError(t, err)
	assert.Equal(t, NeighborsDepth2Query, d.QueryExecuted)
}

func TestPassagesByIDsEmpty(t *testing.T) {
	d := &mockDriver{}
	store := NewStore(d, 1, zap.NewNop())
	passages, err := store.PassagesByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, passages)
	assert.Equal(t, 0, d.Calls)
}
