// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/coupon"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// Models returns every persisted model in dependency order. Shared with the
// test helpers so test databases match production schema.
func Models() []interface{} {
	return []interface{}{
		// User domain - base tables
		&user.User{},
		&user.Address{},

		// Catalog domain
		&catalog.Product{},
		&catalog.ProductVariant{},

		// Inventory domain
		&inventory.StockRecord{},
		&inventory.StockMovement{},

		// Cart domain
		&cart.Cart{},
		&cart.CartLine{},

		// Coupon domain
		&coupon.Coupon{},
		&coupon.Redemption{},

		// Payment domain
		&payment.Method{},
		&payment.Payment{},

		// Order domain - dependent tables
		&order.Order{},
		&order.OrderLine{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("Running database auto-migrations...")

	for _, model := range Models() {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",

		// Catalog indexes
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",

		// Cart indexes
		"CREATE INDEX IF NOT EXISTS idx_carts_user_status ON carts(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_cart_lines_cart_variant ON cart_lines(cart_id, product_variant_id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id)",

		// Payment indexes
		"CREATE INDEX IF NOT EXISTS idx_payments_order_status ON payments(order_id, status)",

		// Coupon indexes
		"CREATE INDEX IF NOT EXISTS idx_coupon_redemptions_coupon_user ON coupon_redemptions(coupon_id, user_id)",

		// Stock movement indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_variant_created ON stock_movements(product_variant_id, created_at DESC)",
	}

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("Warning: failed to create index: %v", err)
		}
	}

	log.Println("Database indexes created")
	return nil
}

// SeedInitialData inserts development fixtures: an admin, a test customer,
// payment methods, a small catalog with stock and a welcome coupon.
func (m *Migration) SeedInitialData() error {
	log.Println("Seeding initial data...")

	if err := m.seedUsers(); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if err := m.seedPaymentMethods(); err != nil {
		return fmt.Errorf("failed to seed payment methods: %w", err)
	}
	if err := m.seedCatalog(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	if err := m.seedCoupons(); err != nil {
		return fmt.Errorf("failed to seed coupons: %w", err)
	}

	log.Println("Initial data seeded successfully")
	return nil
}

func (m *Migration) seedUsers() error {
	seeds := []struct {
		email    string
		password string
		first    string
		last     string
		admin    bool
	}{
		{"admin@example.com", "admin123", "Admin", "User", true},
		{"test1@example.com", "test123", "Test", "Customer", false},
	}

	for _, seed := range seeds {
		var existing user.User
		if err := m.db.Where("email = ?", seed.email).First(&existing).Error; err == nil {
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(seed.password), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		u := user.User{
			Email:         seed.email,
			Password:      string(hashed),
			FirstName:     seed.first,
			LastName:      seed.last,
			IsActive:      true,
			IsAdmin:       seed.admin,
			EmailVerified: true,
		}
		if err := m.db.Create(&u).Error; err != nil {
			return err
		}
		log.Printf("Created user: %s", seed.email)
	}

	return nil
}

func (m *Migration) seedPaymentMethods() error {
	methods := []payment.Method{
		{
			Name:         "Credit Card",
			Kind:         "card",
			Description:  "Visa, Mastercard and American Express",
			FeePercent:   decimal.NewFromFloat(3.5),
			FeeFixed:     decimal.NewFromFloat(0.30),
			DisplayOrder: 1,
			IsActive:     true,
		},
		{
			Name:         "Bank Transfer",
			Kind:         "transfer",
			Description:  "Direct bank transfer",
			FeePercent:   decimal.Zero,
			FeeFixed:     decimal.Zero,
			DisplayOrder: 2,
			IsActive:     true,
		},
		{
			Name:         "Digital Wallet",
			Kind:         "wallet",
			Description:  "Yape and Plin",
			FeePercent:   decimal.NewFromFloat(1.5),
			FeeFixed:     decimal.Zero,
			DisplayOrder: 3,
			IsActive:     true,
		},
	}

	for _, method := range methods {
		var existing payment.Method
		if err := m.db.Where("name = ?", method.Name).First(&existing).Error; err == nil {
			continue
		}
		if err := m.db.Create(&method).Error; err != nil {
			return err
		}
		log.Printf("Created payment method: %s", method.Name)
	}

	return nil
}

func (m *Migration) seedCatalog() error {
	var count int64
	m.db.Model(&catalog.Product{}).Count(&count)
	if count > 0 {
		return nil
	}

	products := []struct {
		product  catalog.Product
		variants []catalog.ProductVariant
		stock    []int
	}{
		{
			product: catalog.Product{
				Name:        "Classic Cotton T-Shirt",
				Slug:        "classic-cotton-t-shirt",
				Description: "Soft cotton t-shirt in several sizes",
				IsActive:    true,
			},
			variants: []catalog.ProductVariant{
				{SKU: "TSHIRT-S", Name: "Classic Cotton T-Shirt / S", SalePrice: decimal.NewFromFloat(29.90), IsActive: true},
				{SKU: "TSHIRT-M", Name: "Classic Cotton T-Shirt / M", SalePrice: decimal.NewFromFloat(29.90), IsActive: true},
				{SKU: "TSHIRT-L", Name: "Classic Cotton T-Shirt / L", SalePrice: decimal.NewFromFloat(29.90), IsActive: true},
			},
			stock: []int{50, 80, 40},
		},
		{
			product: catalog.Product{
				Name:        "Wireless Earbuds",
				Slug:        "wireless-earbuds",
				Description: "Bluetooth earbuds with charging case",
				IsActive:    true,
			},
			variants: []catalog.ProductVariant{
				{SKU: "EARBUDS-BLK", Name: "Wireless Earbuds / Black", SalePrice: decimal.NewFromFloat(120.00), IsActive: true},
				{SKU: "EARBUDS-WHT", Name: "Wireless Earbuds / White", SalePrice: decimal.NewFromFloat(120.00), IsActive: true},
			},
			stock: []int{25, 15},
		},
	}

	for _, entry := range products {
		if err := m.db.Create(&entry.product).Error; err != nil {
			return err
		}
		for i := range entry.variants {
			entry.variants[i].ProductID = entry.product.ID
			if err := m.db.Create(&entry.variants[i]).Error; err != nil {
				return err
			}
			record := inventory.StockRecord{
				ProductVariantID:  entry.variants[i].ID,
				QuantityAvailable: entry.stock[i],
				QuantityMinimum:   5,
			}
			if err := m.db.Create(&record).Error; err != nil {
				return err
			}
		}
		log.Printf("Created product: %s", entry.product.Name)
	}

	return nil
}

func (m *Migration) seedCoupons() error {
	var existing coupon.Coupon
	if err := m.db.Where("code = ?", "WELCOME10").First(&existing).Error; err == nil {
		return nil
	}

	maxPerUser := 1
	now := time.Now().UTC()
	welcome := coupon.Coupon{
		Code:           "WELCOME10",
		Name:           "Welcome discount",
		Description:    "10% off your first purchase",
		Type:           coupon.TypePercentage,
		Value:          decimal.NewFromInt(10),
		MaxUsesPerUser: &maxPerUser,
		NewUsersOnly:   true,
		StartsAt:       now,
		EndsAt:         now.AddDate(1, 0, 0),
		IsActive:       true,
	}
	if err := m.db.Create(&welcome).Error; err != nil {
		return err
	}
	log.Println("Created coupon: WELCOME10")

	return nil
}
