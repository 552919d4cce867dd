package auth

import (
	"github.com/google/uuid"

	"github.com/plateful/storefront/internal/enum"
)

// Actor is the identity a consumer view is constructed for. Staff actors
// come from validated JWT claims; customers carry only a phone number.
type Actor struct {
	UserID   uuid.UUID
	BranchID uuid.UUID
	Role     string
	Phone    string
}

// CustomerActor builds the unauthenticated customer identity. Phone is
// the sole correlation key to the customer's own orders.
func CustomerActor(phone string) Actor {
	return Actor{Role: enum.RoleCustomer, Phone: phone}
}

// StaffActor builds an actor from validated staff claims.
func StaffActor(c *Claims) Actor {
	return Actor{UserID: c.UserID, BranchID: c.BranchID, Role: c.Role}
}

// CanViewBranch reports whether the actor may open the dashboard for the
// given branch. Owners may open any branch dashboard.
func (a Actor) CanViewBranch(branchID uuid.UUID) bool {
	switch a.Role {
	case enum.RoleOwner:
		return true
	case enum.RoleBranchAdmin:
		return a.BranchID == branchID
	}
	return false
}

// CanViewNetwork reports whether the actor may open the network-wide
// dashboard.
func (a Actor) CanViewNetwork() bool {
	return a.Role == enum.RoleOwner
}

// CanTrackPhone reports whether the actor may view the order list for a
// phone number. Customers only see their own; staff see any.
func (a Actor) CanTrackPhone(phone string) bool {
	switch a.Role {
	case enum.RoleOwner, enum.RoleBranchAdmin:
		return true
	case enum.RoleCustomer:
		return a.Phone != "" && a.Phone == phone
	}
	return false
}
