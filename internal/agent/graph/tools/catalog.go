package tools

import (
	"context"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	"github.com/cloudwego/eino/schema"
)

const (
	CatalogSearch  = "catalog_search"
	ProductDetails = "product_details"
)

type SearchInput struct {
	Query    string `json:"query"`
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

type SearchOutput struct {
	Products   []model.ProductSummary `json:"products"`
	Total      int                    `json:"total"`
	Confidence float64                `json:"confidence"`
}

type ProductInput struct {
	ProductID string `json:"product_id"`
}

type ProductOutput struct {
	Product model.Product `json:"product"`
}

func catalogSpecs(catalog commerce.Catalog) []Spec {
	return []Spec{
		{
			Name:   CatalogSearch,
			Domain: "CATALOG",
			Desc: "Search the tenant's catalog. Supports Thai/English keywords such as มือถือ, โทรศัพท์, smartphone, " +
				"laptop, โน้ตบุ๊ค, headphones. Returns product ids, names, prices and availability.",
			Params: map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Product search keywords in Thai or English. Can include brand names, product types or model numbers.",
					Required: true,
				},
				"category": {
					Type: schema.String,
					Desc: "Optional category filter, e.g. smartphones, laptops, audio",
				},
				"limit": {
					Type: schema.Integer,
					Desc: "Maximum number of products to return (default 10)",
				},
			},
			Run: func(ctx context.Context, c Call) (any, error) {
				var in SearchInput
				if err := c.Bind(&in); err != nil {
					return nil, err
				}
				res, err := catalog.Search(ctx, c.TenantID, commerce.SearchQuery{Text: in.Query, Category: in.Category, Limit: in.Limit})
				if err != nil {
					return nil, err
				}
				return SearchOutput{Products: res.Products, Total: res.Total, Confidence: res.Confidence}, nil
			},
		},
		{
			Name:   ProductDetails,
			Domain: "PRODUCT",
			Desc:   "Fetch full details of one product: description, variants and current stock.",
			Params: map[string]*schema.ParameterInfo{
				"product_id": {Type: schema.String, Desc: "Product id from a search result", Required: true},
			},
			Run: func(ctx context.Context, c Call) (any, error) {
				var in ProductInput
				if err := c.Bind(&in); err != nil {
					return nil, err
				}
				p, err := catalog.Product(ctx, c.TenantID, in.ProductID)
				if err != nil {
					return nil, err
				}
				return ProductOutput{Product: *p}, nil
			},
		},
	}
}
