package seeders

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/config"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/auth"
)

func init() {
	Register("catalog", seedCatalog)
	Register("tables", seedTables)
	Register("staff", seedStaff)
	Register("admin", seedAdmin)
}

type menuItem struct {
	name     string
	price    string
	category string
}

var categories = []string{"Bebidas", "Entrantes", "Principales", "Postres"}

var menu = []menuItem{
	{"Agua", "1.50", "Bebidas"},
	{"Refresco", "2.50", "Bebidas"},
	{"Cerveza", "3.00", "Bebidas"},
	{"Vino copa", "3.50", "Bebidas"},
	{"Patatas bravas", "5.00", "Entrantes"},
	{"Croquetas", "6.00", "Entrantes"},
	{"Ensalada", "7.50", "Entrantes"},
	{"Tortilla", "5.50", "Entrantes"},
	{"Burger", "12.00", "Principales"},
	{"Pasta", "10.00", "Principales"},
	{"Paella", "15.00", "Principales"},
	{"Pescado", "16.50", "Principales"},
	{"Tarta", "5.00", "Postres"},
	{"Helado", "4.00", "Postres"},
	{"Fruta", "3.50", "Postres"},
	{"Café", "1.80", "Postres"},
}

type staffMember struct {
	name string
	code string
	role models.Role
}

var staff = []staffMember{
	{"Juan Camarero", "1234", models.RoleWaiter},
	{"María Camarera", "5678", models.RoleWaiter},
	{"Chef Carlos", "9999", models.RoleKitchen},
}

func seedCatalog(db *gorm.DB) error {
	ids := make(map[string]string, len(categories))
	for _, name := range categories {
		c := models.Category{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&c).Error; err != nil {
			return err
		}
		ids[name] = c.ID
	}

	for _, item := range menu {
		price, err := decimal.NewFromString(item.price)
		if err != nil {
			return fmt.Errorf("price for %s: %w", item.name, err)
		}
		p := models.Product{Name: item.name, Price: price, CategoryID: ids[item.category]}
		if err := db.Omit("Category").Where("name = ?", item.name).FirstOrCreate(&p).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedTables lays out tables 1-6. Table 5 starts out of service.
func seedTables(db *gorm.DB) error {
	for n := 1; n <= 6; n++ {
		t := models.Table{Number: n, Active: n != 5}
		if err := db.Where("number = ?", n).FirstOrCreate(&t).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedStaff(db *gorm.DB) error {
	for _, s := range staff {
		code := s.code
		u := models.User{Name: s.name, Code: &code, Role: s.role}
		if err := db.Where("code = ?", code).FirstOrCreate(&u).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedAdmin creates the back-office account only when a password is
// configured. There is no built-in default password.
func seedAdmin(db *gorm.DB) error {
	password := config.SeedAdminPassword()
	if password == "" {
		return nil
	}
	name := config.SeedAdminName()

	var n int64
	if err := db.Model(&models.User{}).Where("role = ? AND LOWER(name) = LOWER(?)", models.RoleAdmin, name).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return db.Create(&models.User{Name: name, Role: models.RoleAdmin, PasswordHash: hash}).Error
}
