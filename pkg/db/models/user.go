package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// User is the authentication identity shared by every role.
type User struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Email            string               `gorm:"column:email;not null;uniqueIndex"`
	FirstName        string               `gorm:"column:first_name;not null"`
	LastName         string               `gorm:"column:last_name;not null"`
	Role             enums.UserRole       `gorm:"column:role;type:text;not null"`
	RemindersEnabled bool                 `gorm:"column:reminders_enabled;not null"`
	ReminderWindow   enums.ReminderWindow `gorm:"column:reminder_window;type:text;not null"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Client is the buyer profile attached 1:1 to a user.
type Client struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	User      *User           `gorm:"foreignKey:UserID"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null"`
	Phone     *string         `gorm:"column:phone"`
	Address   *string         `gorm:"column:address"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Vendor is the shop profile attached 1:1 to a user.
type Vendor struct {
	ID              uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	User            *User                      `gorm:"foreignKey:UserID"`
	ShopName        string                     `gorm:"column:shop_name;not null"`
	ShopDescription *string                    `gorm:"column:shop_description"`
	ApprovalStatus  enums.VendorApprovalStatus `gorm:"column:approval_status;type:text;not null"`
	CreatedAt       time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// ClientFavoriteVendor joins clients to the vendors they follow.
type ClientFavoriteVendor struct {
	ClientID  uuid.UUID `gorm:"column:client_id;type:uuid;primaryKey"`
	VendorID  uuid.UUID `gorm:"column:vendor_id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
