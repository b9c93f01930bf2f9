package access

import (
	"errors"
	"strings"

	"ereft/internal/domain/property"
)

var (
	ErrUnauthenticated = errors.New("access: authentication required")
	ErrForbidden       = errors.New("access: caller may not manage this property")
)

// Principal is the authenticated caller as resolved by the transport layer.
// The zero value is an anonymous caller.
type Principal struct {
	ID    string
	Email string
	Roles []string
}

func (p Principal) IsAnonymous() bool {
	return p.ID == "" && p.Email == ""
}

func (p Principal) hasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Gate answers whether a principal may manage a property's calendar and
// bookings: the owner may, and so may anyone with the administrative
// capability. Admin capability comes from an `admin` role or from the
// configured identity list (ids or emails).
type Gate struct {
	adminIdentities map[string]struct{}
}

func NewGate(adminIdentities []string) Gate {
	set := make(map[string]struct{}, len(adminIdentities))
	for _, id := range adminIdentities {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return Gate{adminIdentities: set}
}

func (g Gate) IsAdmin(p Principal) bool {
	if p.hasRole("admin") {
		return true
	}
	if _, ok := g.adminIdentities[strings.ToLower(p.ID)]; ok && p.ID != "" {
		return true
	}
	if _, ok := g.adminIdentities[strings.ToLower(p.Email)]; ok && p.Email != "" {
		return true
	}
	return false
}

// RequireManage fails unless the principal owns the property or is an admin.
func (g Gate) RequireManage(p Principal, prop *property.Property) error {
	if p.IsAnonymous() {
		return ErrUnauthenticated
	}
	if p.ID == prop.OwnerID || g.IsAdmin(p) {
		return nil
	}
	return ErrForbidden
}

// CanManage is RequireManage without the anonymous/forbidden distinction, for
// read-side redaction decisions.
func (g Gate) CanManage(p Principal, prop *property.Property) bool {
	return g.RequireManage(p, prop) == nil
}
