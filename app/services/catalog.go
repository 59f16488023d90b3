package services

import (
	"context"
	"sync"
	"time"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/repositories"
)

// CatalogStore holds the menu and the floor plan in memory. Only Refresh
// writes the snapshot; every accessor returns a copy.
type CatalogStore struct {
	categories *repositories.CategoryRepository
	products   *repositories.ProductRepository
	tables     *repositories.TableRepository

	refreshMu sync.Mutex

	mu       sync.RWMutex
	cats     []models.Category
	prods    []models.Product
	tbls     []models.Table
	loadedAt time.Time
}

func NewCatalogStore(repos *repositories.Repositories) *CatalogStore {
	return &CatalogStore{
		categories: repos.Categories,
		products:   repos.Products,
		tables:     repos.Tables,
	}
}

// Refresh reloads categories, products (with their category) and tables.
// The snapshot is replaced only when all three loads succeed.
func (s *CatalogStore) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	cats, err := s.categories.All(ctx)
	if err != nil {
		return backend("load categories", err)
	}
	prods, err := s.products.All(ctx)
	if err != nil {
		return backend("load products", err)
	}
	tbls, err := s.tables.All(ctx)
	if err != nil {
		return backend("load tables", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cats, s.prods, s.tbls = cats, prods, tbls
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// Start loads the catalog and keeps it fresh on changes from any instance.
func (s *CatalogStore) Start(ctx context.Context, sub Subscriber) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	return watch(ctx, sub, "catalog", []string{
		models.CollectionCategories,
		models.CollectionProducts,
		models.CollectionTables,
	}, s.Refresh)
}

// LoadedAt is when the snapshot was last replaced.
func (s *CatalogStore) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

func (s *CatalogStore) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Category(nil), s.cats...)
}

func (s *CatalogStore) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Product(nil), s.prods...)
}

// ProductsByCategory returns the products filed under categoryID.
func (s *CatalogStore) ProductsByCategory(categoryID string) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Product
	for _, p := range s.prods {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out
}

func (s *CatalogStore) Product(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.prods {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func (s *CatalogStore) Tables() []models.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Table(nil), s.tbls...)
}

// ActiveTables returns the tables waiters can take orders for.
func (s *CatalogStore) ActiveTables() []models.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Table
	for _, t := range s.tbls {
		if t.Active {
			out = append(out, t)
		}
	}
	return out
}

func (s *CatalogStore) Table(id string) (models.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tbls {
		if t.ID == id {
			return t, true
		}
	}
	return models.Table{}, false
}
