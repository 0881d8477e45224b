package auth

type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Authorize applies the owner-or-admin rule to a resource owned by ownerID.
func Authorize(p Principal, ownerID int64) Decision {
	if p.IsAdmin() || p.ID == ownerID {
		return Allow
	}
	return Deny
}
