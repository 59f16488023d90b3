package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
)

// notFound turns a write that matched no rows into gorm.ErrRecordNotFound.
func notFound(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ─── Categories ──────────────────────────────────────────────────────────────

// CategoryRepository handles database operations for Category.
type CategoryRepository struct{ base }

func (r *CategoryRepository) All(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := r.conn(ctx).Order("name").Find(&out).Error
	return out, err
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (models.Category, error) {
	var c models.Category
	err := r.conn(ctx).Where("id = ?", id).First(&c).Error
	return c, err
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	if err := r.conn(ctx).Create(c).Error; err != nil {
		return err
	}
	r.changed(ctx, models.CollectionCategories, notify.OpInsert, c.ID)
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := notFound(r.conn(ctx).Model(&models.Category{}).Where("id = ?", id).Updates(fields)); err != nil {
		return err
	}
	r.changed(ctx, models.CollectionCategories, notify.OpUpdate, id)
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	if err := notFound(r.conn(ctx).Where("id = ?", id).Delete(&models.Category{})); err != nil {
		return err
	}
	r.changed(ctx, models.CollectionCategories, notify.OpDelete, id)
	return nil
}

// CountProducts counts products filed under the category.
func (r *CategoryRepository) CountProducts(ctx context.Context, id string) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Product{}).Where("category_id = ?", id).Count(&n).Error
	return n, err
}

// ─── Products ────────────────────────────────────────────────────────────────

// ProductRepository handles database operations for Product.
type ProductRepository struct{ base }

// All returns every product with its category, ordered by name.
func (r *ProductRepository) All(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	err := r.conn(ctx).Preload("Category").Order("name").Find(&out).Error
	return out, err
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := r.conn(ctx).Preload("Category").Where("id = ?", id).First(&p).Error
	return p, err
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	if err := r.conn(ctx).Omit("Category").Create(p).Error; err != nil {
		return err
	}
	r.changed(ctx, models.CollectionProducts, notify.OpInsert, p.ID)
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := notFound(r.conn(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields)); err != nil {
		return err
	}
	r.changed(ctx, models.CollectionProducts, notify.OpUpdate, id)
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if err := notFound(r.conn(ctx).Where("id = ?", id).Delete(&models.Product{})); err != nil {
		return err
	}
	r.changed(ctx, models.CollectionProducts, notify.OpDelete, id)
	return nil
}

// CountOrderItems counts order lines referencing the product.
func (r *ProductRepository) CountOrderItems(ctx context.Context, id string) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&n).Error
	return n, err
}

// ─── Tables ──────────────────────────────────────────────────────────────────

// TableRepository handles database operations for restaurant tables.
type TableRepository struct{ base }

// All returns every table ordered by number.
func (r *TableRepository) All(ctx context.Context) ([]models.Table, error) {
	var out []models.Table
	err := r.conn(ctx).Order("number").Find(&out).Error
	return out, err
}

func (r *TableRepository) FindByID(ctx context.Context, id string) (models.Table, error) {
	var t models.Table
	err := r.conn(ctx).Where("id = ?", id).First(&t).Error
	return t, err
}

func (r *TableRepository) Create(ctx context.Context, t *models.Table) error {
	if err := r.conn(ctx).Create(t).Error; err != nil {
		return err
	}
	r.changed(ctx, models.CollectionTables, notify.OpInsert, t.ID)
	return nil
}

func (r *TableRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := notFound(r.conn(ctx).Model(&models.Table{}).Where("id = ?", id).Updates(fields)); err != nil {
		return err
	}
	r.changed(ctx, models.CollectionTables, notify.OpUpdate, id)
	return nil
}

func (r *TableRepository) Delete(ctx context.Context, id string) error {
	if err := notFound(r.conn(ctx).Where("id = ?", id).Delete(&models.Table{})); err != nil {
		return err
	}
	r.changed(ctx, models.CollectionTables, notify.OpDelete, id)
	return nil
}

// CountOrders counts orders placed at the table.
func (r *TableRepository) CountOrders(ctx context.Context, id string) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Order{}).Where("table_id = ?", id).Count(&n).Error
	return n, err
}
