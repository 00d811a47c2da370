package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// SeedUser inserts a user with the given role and reminders enabled in the morning window.
func SeedUser(t testing.TB, conn *gorm.DB, role enums.UserRole) models.User {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:               id,
		Email:            id.String() + "@example.test",
		FirstName:        "Test",
		LastName:         string(role),
		Role:             role,
		RemindersEnabled: true,
		ReminderWindow:   enums.ReminderWindowMorning,
	}
	mustCreate(t, conn, &user)
	return user
}

// SeedVendor inserts an approved vendor and its user.
func SeedVendor(t testing.TB, conn *gorm.DB) models.Vendor {
	t.Helper()
	user := SeedUser(t, conn, enums.UserRoleVendor)
	vendor := models.Vendor{
		ID:             uuid.New(),
		UserID:         user.ID,
		User:           &user,
		ShopName:       "Shop " + user.ID.String()[:8],
		ApprovalStatus: enums.VendorApprovalStatusApproved,
	}
	mustCreate(t, conn, &vendor)
	return vendor
}

// SeedClient inserts a client and its user.
func SeedClient(t testing.TB, conn *gorm.DB) models.Client {
	t.Helper()
	user := SeedUser(t, conn, enums.UserRoleClient)
	address := "12 Market Street"
	client := models.Client{
		ID:      uuid.New(),
		UserID:  user.ID,
		User:    &user,
		Balance: decimal.Zero,
		Address: &address,
	}
	mustCreate(t, conn, &client)
	return client
}

// SeedProduct inserts a product owned by vendorID.
func SeedProduct(t testing.TB, conn *gorm.DB, vendorID uuid.UUID, stock int, price string) models.Product {
	t.Helper()
	product := models.Product{
		ID:                uuid.New(),
		VendorID:          vendorID,
		Name:              "Product " + uuid.NewString()[:8],
		UnitPrice:         decimal.RequireFromString(price),
		Stock:             stock,
		AlertThreshold:    models.DefaultAlertThreshold,
		CriticalThreshold: models.DefaultCriticalThreshold,
	}
	mustCreate(t, conn, &product)
	return product
}

// SeedOrder inserts an order with the given status and creation time, plus one line per product.
func SeedOrder(t testing.TB, conn *gorm.DB, clientID, vendorID uuid.UUID, status enums.OrderStatus, createdAt time.Time, lines ...models.OrderLine) models.Order {
	t.Helper()
	vendor := vendorID
	order := models.Order{
		ID:        uuid.New(),
		ClientID:  clientID,
		VendorID:  &vendor,
		Status:    status,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: createdAt.UTC(),
	}
	for _, line := range lines {
		order.ArticleCount += line.Quantity
	}
	mustCreate(t, conn, &order)
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].OrderID = order.ID
		lines[i].Position = i
		mustCreate(t, conn, &lines[i])
	}
	order.Lines = lines
	return order
}

// ProductStock reloads the current stock for a product.
func ProductStock(t testing.TB, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.Stock
}

func mustCreate(t testing.TB, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Omit(clause.Associations).Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
