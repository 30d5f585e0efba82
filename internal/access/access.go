package access

// Role of an authenticated user. Authentication itself is handled upstream;
// this package only evaluates capabilities against the injected identity.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleUser   Role = "user"
)

// Identity is the acting user attached to a request by the upstream auth
// layer. A nil *Identity means an anonymous request.
type Identity struct {
	UserID int64
	Role   Role
}

// Config controls policy behavior. It is passed in at construction time;
// the policy never reads the process environment itself.
type Config struct {
	// Env is the deployment environment ("production", "development", ...).
	Env string
	// DevWriteBypass grants order write access to any authenticated user
	// when Env is not production. A deliberate but risky convenience for
	// local development; never honored in production.
	DevWriteBypass bool
}

// Policy evaluates collection access rules.
type Policy struct {
	cfg Config
}

func NewPolicy(cfg Config) *Policy {
	return &Policy{cfg: cfg}
}

func (p *Policy) authenticated(id *Identity) bool {
	return id != nil
}

func (p *Policy) hasRole(id *Identity, roles ...Role) bool {
	if id == nil {
		return false
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

func (p *Policy) devBypass(id *Identity) bool {
	return p.cfg.DevWriteBypass && p.cfg.Env != "production" && p.authenticated(id)
}

// CanCreateOrder: any authenticated identity may create orders.
func (p *Policy) CanCreateOrder(id *Identity) bool {
	return p.authenticated(id)
}

// CanReadOrders: admin or editor.
func (p *Policy) CanReadOrders(id *Identity) bool {
	return p.hasRole(id, RoleAdmin, RoleEditor)
}

// CanWriteOrders: admin or editor, or the dev-mode bypass.
func (p *Policy) CanWriteOrders(id *Identity) bool {
	return p.hasRole(id, RoleAdmin, RoleEditor) || p.devBypass(id)
}

// CanDeleteOrders: admin or editor.
func (p *Policy) CanDeleteOrders(id *Identity) bool {
	return p.hasRole(id, RoleAdmin, RoleEditor)
}

// CanWriteCatalog: products and posts are managed by admins and editors.
func (p *Policy) CanWriteCatalog(id *Identity) bool {
	return p.hasRole(id, RoleAdmin, RoleEditor)
}

// CanAdminister: admin only.
func (p *Policy) CanAdminister(id *Identity) bool {
	return p.hasRole(id, RoleAdmin)
}
