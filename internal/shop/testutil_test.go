package shop

import (
	"fmt"
	"path/filepath"
	"testing"

	"blind_box/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 每个用例一个独立 sqlite 文件，WAL + busy_timeout 和线上一致。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL",
		filepath.Join(t.TempDir(), "shop_test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{}, &model.Product{}, &model.SubItem{}, &model.Order{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", Password: "x"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

// newTestBox 建一个归属 seller 的盲盒，子款式按 quantities 给定数量。
func newTestBox(t *testing.T, db *gorm.DB, sellerID uint, price string, quantities ...int64) *model.Product {
	t.Helper()
	subs := make([]SubItemInput, 0, len(quantities))
	for i, q := range quantities {
		subs = append(subs, SubItemInput{
			Name:     fmt.Sprintf("款式%d", i+1),
			ImageURL: fmt.Sprintf("/uploads/sub-%d.png", i+1),
			Quantity: q,
		})
	}
	prod, err := CreateBox(db, CreateBoxInput{
		UserID:      sellerID,
		Name:        "测试盲盒",
		Description: "测试用",
		Price:       decimal.RequireFromString(price),
		SubItems:    subs,
	})
	if err != nil {
		t.Fatalf("create box: %v", err)
	}
	return prod
}

// checkStockInvariant 校验 0 <= remaining <= total 且主商品剩余量等于子款式之和。
func checkStockInvariant(t *testing.T, db *gorm.DB, productID uint) {
	t.Helper()
	var prod model.Product
	if err := db.First(&prod, productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if prod.RemainingQuantity < 0 || prod.RemainingQuantity > prod.TotalQuantity {
		t.Fatalf("remaining %d out of bounds [0,%d]", prod.RemainingQuantity, prod.TotalQuantity)
	}
	var subs []model.SubItem
	if err := db.Where("product_id = ?", productID).Find(&subs).Error; err != nil {
		t.Fatalf("load sub items: %v", err)
	}
	var sum int64
	for _, s := range subs {
		if s.RemainingQuantity < 0 || s.RemainingQuantity > s.Quantity {
			t.Fatalf("sub item %d remaining %d out of bounds [0,%d]", s.ID, s.RemainingQuantity, s.Quantity)
		}
		sum += s.RemainingQuantity
	}
	if sum != prod.RemainingQuantity {
		t.Fatalf("sub item remaining sum %d != product remaining %d", sum, prod.RemainingQuantity)
	}
}
