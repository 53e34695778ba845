package commerce

import (
	"context"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

// Demo tenants used by the simulate command and tests.
const (
	DemoTenantID  = "5f0c1a52-7d3e-4b8a-9c21-6e4f2b7a9d10"
	OtherTenantID = "c3a8e9d4-1b6f-4e2a-8d75-0f9b3c6a2e41"
)

var demoProducts = []model.Product{
	{
		ID: "prod-001", Name: "iPhone 15 Pro", Category: "smartphones", Price: 39900,
		Description: "Latest iPhone with A17 Pro chip, titanium design and advanced camera system",
		Keywords:    []string{"phone", "smartphone", "โทรศัพท์", "มือถือ", "apple", "ios"},
		Variants: []model.Variant{
			{Name: "storage", Options: []string{"128GB", "256GB", "512GB"}},
			{Name: "color", Options: []string{"Natural Titanium", "Blue Titanium", "Black Titanium"}},
		},
		Stock: 12,
	},
	{
		ID: "prod-002", Name: "Samsung Galaxy S24 Ultra", Category: "smartphones", Price: 42900,
		Description: "Premium Android phone with S Pen, 200MP camera and AI features",
		Keywords:    []string{"phone", "smartphone", "โทรศัพท์", "มือถือ", "android"},
		Variants:    []model.Variant{{Name: "storage", Options: []string{"256GB", "512GB"}}},
		Stock:       8,
	},
	{
		ID: "prod-003", Name: "MacBook Air M3", Category: "laptops", Price: 42900,
		Description: "Lightweight laptop with M3 chip and 13-inch Liquid Retina display",
		Keywords:    []string{"laptop", "notebook", "computer", "โน้ตบุ๊ค", "คอม", "apple"},
		Variants:    []model.Variant{{Name: "color", Options: []string{"Space Gray", "Silver", "Midnight"}}},
		Stock:       0,
	},
	{
		ID: "prod-004", Name: "AirPods Pro (3rd generation)", Category: "audio", Price: 8900,
		Description: "Wireless earbuds with active noise cancellation and spatial audio",
		Keywords:    []string{"earbuds", "headphones", "หูฟัง", "apple"},
		Stock:       30,
	},
	{
		ID: "prod-006", Name: "Sony WH-1000XM5", Category: "audio", Price: 12900,
		Description: "Premium wireless headphones with industry-leading noise cancellation",
		Keywords:    []string{"headphones", "หูฟัง", "wireless"},
		Variants:    []model.Variant{{Name: "color", Options: []string{"Black", "Silver"}}},
		Stock:       5,
	},
	{
		ID: "prod-009", Name: "Acer Aspire 5 A515-58", Category: "laptops", Price: 28900,
		Description: "Budget laptop Intel Core i5, 8GB RAM, 512GB SSD for everyday work and light gaming",
		Keywords:    []string{"laptop", "notebook", "computer", "โน้ตบุ๊ค", "คอม", "gaming"},
		Stock:       7,
	},
	{
		ID: "prod-010", Name: "Lenovo IdeaPad 3 Gaming", Category: "laptops", Price: 29500,
		Description: "Gaming laptop AMD Ryzen 5, 8GB RAM, GTX 1650",
		Keywords:    []string{"laptop", "notebook", "computer", "โน้ตบุ๊ค", "คอม", "gaming"},
		Stock:       4,
	},
	{
		ID: "prod-011", Name: "HP Pavilion 15-eh3000", Category: "laptops", Price: 27900,
		Description: "All-purpose laptop AMD Ryzen 5, 8GB RAM, 256GB SSD",
		Keywords:    []string{"laptop", "notebook", "computer", "โน้ตบุ๊ค", "คอม"},
		Variants:    []model.Variant{{Name: "color", Options: []string{"Natural Silver", "Warm Gold"}}},
		Stock:       6,
	},
	{
		ID: "prod-012", Name: "ASUS VivoBook 15 X1502ZA", Category: "laptops", Price: 24900,
		Description: "Affordable laptop Intel Core i3, 8GB RAM, 512GB SSD",
		Keywords:    []string{"laptop", "notebook", "computer", "โน้ตบุ๊ค", "คอม"},
		Stock:       9,
	},
}

var otherProducts = []model.Product{
	{
		ID: "prod-b-001", Name: "Linen Shirt", Category: "apparel", Price: 1290,
		Description: "Breathable linen shirt",
		Keywords:    []string{"shirt", "เสื้อ"},
		Variants:    []model.Variant{{Name: "size", Options: []string{"S", "M", "L"}}},
		Stock:       20,
	},
}

var demoArticles = []model.Article{
	{ID: "kb-001", Title: "Shipping times", Body: "Orders ship within 2 business days. Bangkok delivery takes 1-2 days, other provinces 2-4 days.", Tags: []string{"shipping", "delivery", "จัดส่ง"}},
	{ID: "kb-002", Title: "Return policy", Body: "Unopened items can be returned within 14 days for a full refund.", Tags: []string{"return", "refund", "คืนสินค้า"}},
	{ID: "kb-003", Title: "Warranty", Body: "All electronics carry a 1 year manufacturer warranty.", Tags: []string{"warranty", "ประกัน"}},
}

// DemoTenants returns the tenants seeded by SeedDemo.
func DemoTenants() []model.Tenant {
	return []model.Tenant{
		{ID: DemoTenantID, Name: "TechHub", Active: true, CatalogURL: "https://techhub.example/catalog", Currency: "THB"},
		{ID: OtherTenantID, Name: "Linen & Co", Active: true, CatalogURL: "https://linen.example/shop", Currency: "THB"},
	}
}

// SeedDemo loads the demo catalog, knowledge base and offers into s.
func SeedDemo(ctx context.Context, s *MemoryStore) error {
	for _, p := range demoProducts {
		p.TenantID = DemoTenantID
		if err := s.AddProduct(ctx, p); err != nil {
			return err
		}
	}
	for _, p := range otherProducts {
		p.TenantID = OtherTenantID
		if err := s.AddProduct(ctx, p); err != nil {
			return err
		}
	}
	for _, a := range demoArticles {
		a.TenantID = DemoTenantID
		s.AddArticle(a)
	}
	s.AddOffer(DemoTenantID, model.Offer{Code: "WELCOME5", Description: "5% off your first order", Percent: 5})
	s.AddOffer(DemoTenantID, model.Offer{Code: "BIG10", Description: "10% off orders over 40,000", Percent: 10, MinSubtotal: 40000})
	return nil
}
