package gate

// Strategy selects how a route authenticates its callers.
type Strategy int

const (
	// BearerJWT demands a valid bearer token.
	BearerJWT Strategy = iota
	// Public skips authentication entirely.
	Public
	// PublicTolerant authenticates when a valid token is presented and lets the request
	// through anonymously otherwise.
	PublicTolerant
)

func (s Strategy) String() string {
	switch s {
	case BearerJWT:
		return "bearer"
	case Public:
		return "public"
	case PublicTolerant:
		return "public_tolerant"
	default:
		return "unknown"
	}
}

const defaultAccountParam = "uid"

// Route is the access policy attached to one endpoint.
type Route struct {
	Strategy Strategy
	// Permissions lists the permissions required, all of them.
	Permissions []string
	// AllowAnon skips the permission check for any authenticated caller.
	AllowAnon bool
	// Streaming marks long-lived event-stream endpoints whose path names the account.
	Streaming bool
	// AccountParam is the chi URL parameter holding the account id of a streaming route.
	AccountParam string
}

// Open is a public route.
func Open() Route {
	return Route{Strategy: Public}
}

// Tolerant is a route that binds an identity when it can.
func Tolerant() Route {
	return Route{Strategy: PublicTolerant}
}

// Authenticated is a route any logged-in account may call.
func Authenticated() Route {
	return Route{Strategy: BearerJWT, AllowAnon: true}
}

// Protected is a route requiring every listed permission.
func Protected(perms ...string) Route {
	return Route{Strategy: BearerJWT, Permissions: perms}
}

// Stream is an event-stream route whose account is named by the uid path parameter.
func Stream() Route {
	return Route{Strategy: BearerJWT, AllowAnon: true, Streaming: true, AccountParam: defaultAccountParam}
}

func (r Route) accountParam() string {
	if r.AccountParam == "" {
		return defaultAccountParam
	}
	return r.AccountParam
}

func (r Route) needsPermissionCheck() bool {
	return !r.AllowAnon && len(r.Permissions) > 0
}
