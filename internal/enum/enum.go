package enum

// ── State machine (CHECK constrained in DB) ──

const (
	OrderStatusPlaced     = "placed"
	OrderStatusProcessing = "processing"
	OrderStatusReady      = "ready"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// ── CHECK constrained in DB ──

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	ItemTypeImmediate   = "immediate"
	ItemTypeMadeToOrder = "made-to-order"
)

// ── Realtime event types ──

const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)
