package enum

// --- Order lifecycle (validated server-side, never by the client) ---

const (
	OrderStatusPending        = "PENDING"
	OrderStatusAccepted       = "ACCEPTED"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusReady          = "READY"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusCompleted      = "COMPLETED"
	OrderStatusCanceled       = "CANCELED"
)

// OrderStatuses lists every valid status, forward chain first.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusCompleted,
	OrderStatusCanceled,
}

// IsValidOrderStatus reports whether s is a known status value.
func IsValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminalOrderStatus reports whether s admits no further transitions.
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// --- Actor roles ---

const (
	RoleOwner       = "OWNER"
	RoleBranchAdmin = "BRANCH_ADMIN"
	RoleCustomer    = "CUSTOMER"
)

// --- Snapshot store names (one durable record per name) ---

const (
	StoreOrders   = "orders-store"
	StoreCart     = "cart-storage"
	StoreBranches = "branches-store"
	StoreUsers    = "users-store"
)

// --- Broadcast event names ---

const (
	EventOrdersChanged   = "orders"
	EventBranchesChanged = "branches"
	EventUsersChanged    = "users"
)
