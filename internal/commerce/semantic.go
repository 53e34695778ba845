package commerce

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds vector search connection settings.
type QdrantConfig struct {
	URL        string  `envconfig:"QDRANT_URL"`
	APIKey     string  `envconfig:"QDRANT_API_KEY"`
	Collection string  `envconfig:"QDRANT_COLLECTION" default:"products"`
	MinScore   float32 `envconfig:"QDRANT_MIN_SCORE" default:"0.3"`
}

// PointQuerier is the part of the Qdrant client used for search.
type PointQuerier interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// NewQdrantClient parses cfg.URL into the gRPC client configuration.
func NewQdrantClient(cfg QdrantConfig) (*qdrant.Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	raw := cfg.URL
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}
	port := 6334
	if u.Port() != "" {
		if port, err = strconv.Atoi(u.Port()); err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
	}
	return qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
}

// SemanticCatalog answers Search with vector similarity and hydrates every hit
// through the tenant-scoped base catalog. Product lookups go straight to base.
type SemanticCatalog struct {
	base       Catalog
	points     PointQuerier
	embedder   embedding.Embedder
	collection string
	minScore   float32
}

func NewSemanticCatalog(base Catalog, points PointQuerier, embedder embedding.Embedder, cfg QdrantConfig) *SemanticCatalog {
	return &SemanticCatalog{
		base:       base,
		points:     points,
		embedder:   embedder,
		collection: cfg.Collection,
		minScore:   cfg.MinScore,
	}
}

func (c *SemanticCatalog) Product(ctx context.Context, tenantID, productID string) (*model.Product, error) {
	return c.base.Product(ctx, tenantID, productID)
}

func (c *SemanticCatalog) Search(ctx context.Context, tenantID string, q SearchQuery) (*model.SearchResult, error) {
	res, err := c.semanticSearch(ctx, tenantID, q)
	if err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("semantic search failed, using keyword search")
		return c.base.Search(ctx, tenantID, q)
	}
	return res, nil
}

func (c *SemanticCatalog) semanticSearch(ctx context.Context, tenantID string, q SearchQuery) (*model.SearchResult, error) {
	vecs, err := c.embedder.EmbedStrings(ctx, []string{q.Text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embed query: empty vector")
	}
	vector := make([]float32, len(vecs[0]))
	for i, v := range vecs[0] {
		vector[i] = float32(v)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	limitUint64 := uint64(limit)
	points, err := c.points.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitUint64,
		Filter:         tenantFilter(tenantID, q.Category),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, errx.Upstream(err, "qdrant search failed")
	}

	out := &model.SearchResult{Products: []model.ProductSummary{}}
	for _, pt := range points {
		if c.minScore > 0 && pt.Score < c.minScore {
			continue
		}
		id := pointProductID(pt)
		if id == "" {
			continue
		}
		p, err := c.base.Product(ctx, tenantID, id)
		if err != nil {
			if errx.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out.Products = append(out.Products, model.ProductSummary{
			ID: p.ID, Name: p.Name, Category: p.Category, Price: p.Price, InStock: p.InStock(), Score: float64(pt.Score),
		})
	}
	out.Total = len(out.Products)
	for _, p := range out.Products {
		out.Confidence = math.Max(out.Confidence, p.Score)
	}
	return out, nil
}

func keywordCondition(field, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key:   field,
				Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func tenantFilter(tenantID, category string) *qdrant.Filter {
	must := []*qdrant.Condition{keywordCondition("tenant_id", tenantID)}
	if category != "" {
		must = append(must, keywordCondition("category", strings.ToLower(category)))
	}
	return &qdrant.Filter{Must: must}
}

func pointProductID(pt *qdrant.ScoredPoint) string {
	if v, ok := pt.Payload["product_id"]; ok {
		if s := v.GetStringValue(); s != "" {
			return s
		}
	}
	if pt.Id != nil {
		return pt.Id.GetUuid()
	}
	return ""
}

var _ Catalog = (*SemanticCatalog)(nil)
