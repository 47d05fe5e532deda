package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Profile struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       pgtype.Text
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type MenuItem struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       int32
	Category    string
	IsVeg       bool
	Type        string
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TimeSlot struct {
	ID        uuid.UUID
	Time      string
	MaxOrders int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Total        int64
	Status       string
	TimeSlot     string
	Notes        pgtype.Text
	Token        string
	Otp          string
	OtpVerified  bool
	SlotReserved bool
	PickupDate   time.Time
	PlacedAt     time.Time
	UpdatedAt    time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Price      int32
	Quantity   int32
	Type       string
	CreatedAt  time.Time
}
