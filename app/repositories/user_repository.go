package repositories

import (
	"context"
	"strings"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
)

// UserRepository handles database operations for staff.
type UserRepository struct{ base }

// FindStaffByCode returns every waiter or kitchen user holding code. More
// than one row means the data is ambiguous.
func (r *UserRepository) FindStaffByCode(ctx context.Context, code string) ([]models.User, error) {
	var users []models.User
	err := r.conn(ctx).
		Where("code = ? AND role IN ?", code, []models.Role{models.RoleWaiter, models.RoleKitchen}).
		Limit(2).
		Find(&users).Error
	return users, err
}

// FindAdminsByName matches admins by name, case-insensitively.
func (r *UserRepository) FindAdminsByName(ctx context.Context, name string) ([]models.User, error) {
	var users []models.User
	err := r.conn(ctx).
		Where("LOWER(name) = ? AND role = ?", strings.ToLower(strings.TrimSpace(name)), models.RoleAdmin).
		Limit(2).
		Find(&users).Error
	return users, err
}

// FindByID looks up a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.conn(ctx).Where("id = ?", id).First(&user).Error
	return user, err
}

// All returns every staff member ordered by role then name.
func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.conn(ctx).Order("role, name").Find(&users).Error
	return users, err
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.conn(ctx).Create(user).Error; err != nil {
		return err
	}
	r.changed(ctx, models.CollectionUsers, notify.OpInsert, user.ID)
	return nil
}

// Update writes the given columns. Zero values are written as-is.
func (r *UserRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.conn(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if err := notFound(res); err != nil {
		return err
	}
	r.changed(ctx, models.CollectionUsers, notify.OpUpdate, id)
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := notFound(r.conn(ctx).Where("id = ?", id).Delete(&models.User{})); err != nil {
		return err
	}
	r.changed(ctx, models.CollectionUsers, notify.OpDelete, id)
	return nil
}

// CountOrders counts orders created by the user.
func (r *UserRepository) CountOrders(ctx context.Context, id string) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Order{}).Where("user_id = ?", id).Count(&n).Error
	return n, err
}
