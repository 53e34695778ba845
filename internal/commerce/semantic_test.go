package commerce

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakePoints struct {
	points []*qdrant.ScoredPoint
	err    error
	last   *qdrant.QueryPoints
}

func (f *fakePoints) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.last = req
	return f.points, f.err
}

func hit(productID string, score float32) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{
		Score: score,
		Payload: map[string]*qdrant.Value{
			"product_id": {Kind: &qdrant.Value_StringValue{StringValue: productID}},
		},
	}
}

func TestSemanticSearchHydratesWithinTenant(t *testing.T) {
	base := seeded(t)
	points := &fakePoints{points: []*qdrant.ScoredPoint{
		hit("prod-009", 0.91),
		hit("prod-b-001", 0.88),
		hit("prod-012", 0.2),
		hit("prod-011", 0.75),
	}}
	c := NewSemanticCatalog(base, points, fakeEmbedder{}, QdrantConfig{Collection: "products", MinScore: 0.3})

	res, err := c.Search(context.Background(), DemoTenantID, SearchQuery{Text: "cheap laptop", Category: "Laptops", Limit: 5})
	require.NoError(t, err)
	require.Len(t, res.Products, 2)
	assert.Equal(t, "prod-009", res.Products[0].ID)
	assert.Equal(t, "prod-011", res.Products[1].ID)
	assert.Equal(t, 2, res.Total)
	assert.InDelta(t, 0.91, res.Confidence, 1e-6)

	require.NotNil(t, points.last)
	assert.Equal(t, "products", points.last.CollectionName)
	must := points.last.Filter.GetMust()
	require.Len(t, must, 2)
	assert.Equal(t, "tenant_id", must[0].GetField().GetKey())
	assert.Equal(t, DemoTenantID, must[0].GetField().GetMatch().GetKeyword())
	assert.Equal(t, "laptops", must[1].GetField().GetMatch().GetKeyword())
}

func TestSemanticSearchFallsBackToKeywords(t *testing.T) {
	base := seeded(t)

	c := NewSemanticCatalog(base, &fakePoints{}, fakeEmbedder{err: errors.New("quota")}, QdrantConfig{})
	res, err := c.Search(context.Background(), DemoTenantID, SearchQuery{Text: "headphones"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	c = NewSemanticCatalog(base, &fakePoints{err: errors.New("unavailable")}, fakeEmbedder{}, QdrantConfig{})
	res, err = c.Search(context.Background(), DemoTenantID, SearchQuery{Text: "headphones"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestPointProductIDFallsBackToUUID(t *testing.T) {
	pt := &qdrant.ScoredPoint{Id: qdrant.NewIDUUID("8f14e45f-ceea-467f-a8b0-1b1a2e6d2a11")}
	assert.Equal(t, "8f14e45f-ceea-467f-a8b0-1b1a2e6d2a11", pointProductID(pt))
	assert.Equal(t, "prod-001", pointProductID(hit("prod-001", 1)))
}
