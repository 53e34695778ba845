package commerce

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	"github.com/google/uuid"
)

type key struct {
	tenant string
	id     string
}

// MemoryStore is an in-process implementation of every commerce contract.
type MemoryStore struct {
	mu sync.Mutex

	products    map[key]model.Product
	orders      map[key]*model.Order
	ordersByKey map[key]string
	payments    map[key]*model.Payment
	payByOrder  map[key]string
	articles    map[string][]model.Article
	offers      map[string][]model.Offer
	consent     map[key]map[string]bool
	currency    map[string]string

	inventory      Inventory
	paymentBaseURL string
	now            func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithInventory routes stock reservation to inv instead of in-process counters.
func WithInventory(inv Inventory) MemoryOption {
	return func(s *MemoryStore) { s.inventory = inv }
}

func WithPaymentBaseURL(u string) MemoryOption {
	return func(s *MemoryStore) { s.paymentBaseURL = strings.TrimRight(u, "/") }
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		products:       make(map[key]model.Product),
		orders:         make(map[key]*model.Order),
		ordersByKey:    make(map[key]string),
		payments:       make(map[key]*model.Payment),
		payByOrder:     make(map[key]string),
		articles:       make(map[string][]model.Article),
		offers:         make(map[string][]model.Offer),
		consent:        make(map[key]map[string]bool),
		currency:       make(map[string]string),
		paymentBaseURL: "https://pay.chative.local/p",
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.inventory == nil {
		s.inventory = newMemoryInventory()
	}
	return s
}

// AddProduct registers a product under its tenant and seeds its stock.
func (s *MemoryStore) AddProduct(ctx context.Context, p model.Product) error {
	s.mu.Lock()
	s.products[key{p.TenantID, p.ID}] = p
	s.mu.Unlock()
	return s.inventory.SetStock(ctx, p.TenantID, p.ID, p.Stock)
}

func (s *MemoryStore) AddArticle(a model.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.TenantID] = append(s.articles[a.TenantID], a)
}

func (s *MemoryStore) AddOffer(tenantID string, o model.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[tenantID] = append(s.offers[tenantID], o)
}

func (s *MemoryStore) SetCurrency(tenantID, currency string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currency[tenantID] = currency
}

// ================ Catalog ================

func (s *MemoryStore) Search(ctx context.Context, tenantID string, q SearchQuery) (*model.SearchResult, error) {
	terms := Tokenize(q.Text)
	if len(terms) == 0 {
		return nil, errx.Validation(model.CodeInvalidParams, "query has no searchable terms")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	var hits []model.ProductSummary
	for k, p := range s.products {
		if k.tenant != tenantID {
			continue
		}
		if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		score := matchScore(terms, p)
		if score == 0 {
			continue
		}
		hits = append(hits, model.ProductSummary{
			ID: p.ID, Name: p.Name, Category: p.Category, Price: p.Price, InStock: p.InStock(), Score: score,
		})
	}
	s.mu.Unlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	res := &model.SearchResult{Total: len(hits), Products: hits}
	if len(hits) > 0 {
		res.Confidence = matchConfidence(terms, hits[0].Score)
	}
	if len(hits) > limit {
		res.Products = hits[:limit]
	}
	if res.Products == nil {
		res.Products = []model.ProductSummary{}
	}
	return res, nil
}

func (s *MemoryStore) Product(ctx context.Context, tenantID, productID string) (*model.Product, error) {
	s.mu.Lock()
	p, ok := s.products[key{tenantID, productID}]
	s.mu.Unlock()
	if !ok {
		return nil, errx.NotFound("product not found")
	}
	if n, err := s.inventory.Available(ctx, tenantID, productID); err == nil {
		p.Stock = n
	}
	return &p, nil
}

// Tokenize lowercases text and splits it into letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
	})
}

func matchScore(terms []string, p model.Product) float64 {
	hay := strings.ToLower(strings.Join(append([]string{p.Name, p.Category, p.Description}, p.Keywords...), " "))
	var score float64
	for _, t := range terms {
		if strings.Contains(hay, t) {
			score++
			if strings.Contains(strings.ToLower(p.Name), t) {
				score += 0.5
			}
		}
	}
	return score
}

// matchConfidence normalises a matchScore against the best possible score,
// every term found in the product name.
func matchConfidence(terms []string, score float64) float64 {
	if len(terms) == 0 {
		return 0
	}
	return math.Min(1, score/(1.5*float64(len(terms))))
}

// ================ Orders ================

func (s *MemoryStore) CreateOrder(ctx context.Context, tenantID string, req OrderRequest) (*model.Order, bool, error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, false, errx.Validation(model.CodeMissingParams, "idempotency_key is required")
	}
	if len(req.Items) == 0 {
		return nil, false, errx.Validation(model.CodeInvalidParams, "order has no items")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.ordersByKey[key{tenantID, req.IdempotencyKey}]; ok {
		o := *s.orders[key{tenantID, id}]
		return &o, false, nil
	}

	lines := make([]model.OrderLine, 0, len(req.Items))
	stock := make([]StockLine, 0, len(req.Items))
	for _, it := range req.Items {
		p, ok := s.products[key{tenantID, it.ProductID}]
		if !ok {
			return nil, false, errx.NotFound(fmt.Sprintf("product %s not found", it.ProductID))
		}
		if it.Quantity < 1 || it.Quantity > model.MaxQuantity {
			return nil, false, errx.Validation(model.CodeInvalidParams, "quantity out of range")
		}
		if err := checkVariants(p, it.VariantSelection); err != nil {
			return nil, false, err
		}
		lines = append(lines, model.OrderLine{
			ProductID:        p.ID,
			Name:             p.Name,
			Quantity:         it.Quantity,
			UnitPrice:        p.Price,
			VariantSelection: it.VariantSelection,
		})
		stock = append(stock, StockLine{ProductID: p.ID, Quantity: it.Quantity})
	}

	if err := s.inventory.Reserve(ctx, tenantID, stock); err != nil {
		return nil, false, err
	}

	o := &model.Order{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		CustomerID:     req.CustomerID,
		IdempotencyKey: req.IdempotencyKey,
		Lines:          lines,
		Totals:         orderTotals(lines, s.currencyOf(tenantID)),
		Status:         model.OrderPending,
		CreatedAt:      s.now().UTC(),
	}
	s.orders[key{tenantID, o.ID}] = o
	s.ordersByKey[key{tenantID, req.IdempotencyKey}] = o.ID
	out := *o
	return &out, true, nil
}

func checkVariants(p model.Product, sel map[string]string) error {
	for name, val := range sel {
		found := false
		for _, v := range p.Variants {
			if !strings.EqualFold(v.Name, name) {
				continue
			}
			for _, opt := range v.Options {
				if strings.EqualFold(opt, val) {
					found = true
				}
			}
		}
		if !found {
			return errx.Validation(model.CodeInvalidParams, fmt.Sprintf("%s=%s is not offered for %s", name, val, p.Name))
		}
	}
	return nil
}

func (s *MemoryStore) Order(ctx context.Context, tenantID, orderID string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[key{tenantID, orderID}]
	if !ok {
		return nil, errx.NotFound("order not found")
	}
	out := *o
	return &out, nil
}

func (s *MemoryStore) currencyOf(tenantID string) string {
	if c := s.currency[tenantID]; c != "" {
		return c
	}
	return "THB"
}

// ================ Offers ================

func (s *MemoryStore) ApplyBestOffer(ctx context.Context, tenantID, orderID string) (*model.Order, *model.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[key{tenantID, orderID}]
	if !ok {
		return nil, nil, errx.NotFound("order not found")
	}
	if o.OfferCode != "" {
		for _, off := range s.offers[tenantID] {
			if off.Code == o.OfferCode {
				out, applied := *o, off
				return &out, &applied, nil
			}
		}
	}
	off, discount, found := bestOffer(s.offers[tenantID], o.Totals.Subtotal)
	out := *o
	if !found {
		return &out, nil, nil
	}
	o.OfferCode = off.Code
	o.Totals.Discount = discount
	o.Totals.Total = roundMoney(o.Totals.Subtotal - discount)
	out = *o
	return &out, &off, nil
}

// ================ Payments ================

func (s *MemoryStore) CreatePayment(ctx context.Context, tenantID, orderID, method string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[key{tenantID, orderID}]
	if !ok {
		return nil, errx.NotFound("order not found")
	}
	if id, ok := s.payByOrder[key{tenantID, orderID}]; ok {
		if p := s.payments[key{tenantID, id}]; p.Status == model.PaymentPending {
			out := *p
			return &out, nil
		}
	}
	if method == "" {
		method = "promptpay"
	}
	p := &model.Payment{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		OrderID:  o.ID,
		Amount:   o.Totals.Total,
		Currency: o.Totals.Currency,
		Method:   method,
		Status:   model.PaymentPending,
	}
	p.URL = fmt.Sprintf("%s/%s", s.paymentBaseURL, p.ID)
	s.payments[key{tenantID, p.ID}] = p
	s.payByOrder[key{tenantID, orderID}] = p.ID
	out := *p
	return &out, nil
}

func (s *MemoryStore) Payment(ctx context.Context, tenantID, paymentID string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[key{tenantID, paymentID}]
	if !ok {
		return nil, errx.NotFound("payment not found")
	}
	out := *p
	return &out, nil
}

// SetPaymentStatus records a provider callback; paid payments mark their order paid.
func (s *MemoryStore) SetPaymentStatus(ctx context.Context, tenantID, paymentID string, status model.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[key{tenantID, paymentID}]
	if !ok {
		return errx.NotFound("payment not found")
	}
	p.Status = status
	if status == model.PaymentPaid {
		if o, ok := s.orders[key{tenantID, p.OrderID}]; ok {
			o.Status = model.OrderPaid
		}
	}
	return nil
}

// ================ Knowledge ================

func (s *MemoryStore) SearchArticles(ctx context.Context, tenantID, query string, limit int) ([]model.Article, error) {
	terms := Tokenize(query)
	if limit <= 0 {
		limit = 3
	}
	type scored struct {
		a     model.Article
		score int
	}
	s.mu.Lock()
	var hits []scored
	for _, a := range s.articles[tenantID] {
		hay := strings.ToLower(a.Title + " " + a.Body + " " + strings.Join(a.Tags, " "))
		n := 0
		for _, t := range terms {
			if len([]rune(t)) > 2 && strings.Contains(hay, t) {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, scored{a, n})
		}
	}
	s.mu.Unlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	out := make([]model.Article, 0, limit)
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].a)
	}
	return out, nil
}

// ================ Consent ================

func (s *MemoryStore) UpdateConsent(ctx context.Context, tenantID, customerID, channel string, optIn bool) error {
	if customerID == "" {
		return errx.Validation(model.CodeMissingParams, "customer_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{tenantID, customerID}
	if s.consent[k] == nil {
		s.consent[k] = make(map[string]bool)
	}
	s.consent[k][channel] = optIn
	return nil
}

// ConsentOf reports the recorded opt-in for a channel.
func (s *MemoryStore) ConsentOf(tenantID, customerID, channel string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.consent[key{tenantID, customerID}][channel]
	return v, ok
}

// ================ Inventory ================

type memoryInventory struct {
	mu    sync.Mutex
	stock map[key]int
}

func newMemoryInventory() *memoryInventory {
	return &memoryInventory{stock: make(map[key]int)}
}

func (m *memoryInventory) Reserve(ctx context.Context, tenantID string, lines []StockLine) error {
	lines = mergeLines(lines)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range lines {
		if m.stock[key{tenantID, l.ProductID}] < l.Quantity {
			return insufficientStock(l.ProductID)
		}
	}
	for _, l := range lines {
		m.stock[key{tenantID, l.ProductID}] -= l.Quantity
	}
	return nil
}

func (m *memoryInventory) SetStock(ctx context.Context, tenantID, productID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[key{tenantID, productID}] = qty
	return nil
}

func (m *memoryInventory) Available(ctx context.Context, tenantID, productID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[key{tenantID, productID}], nil
}

var (
	_ Catalog   = (*MemoryStore)(nil)
	_ Orders    = (*MemoryStore)(nil)
	_ Offers    = (*MemoryStore)(nil)
	_ Payments  = (*MemoryStore)(nil)
	_ Knowledge = (*MemoryStore)(nil)
	_ Consent   = (*MemoryStore)(nil)
	_ Inventory = (*memoryInventory)(nil)
)
