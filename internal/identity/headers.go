package identity

// Trusted header names: the unsigned restatement of a Principal that
// the edge tier stamps onto forwarded requests. Part of the
// gateway-to-service contract; do not rename.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUsername = "X-Username"
	HeaderUserRole = "X-User-Role"

	// HeaderGatewayToken carries the edge tier's shared secret. When a
	// service is configured with that secret, the X-User-* headers are
	// trusted only if this header matches; otherwise any direct caller
	// could impersonate any principal by setting headers itself.
	HeaderGatewayToken = "X-Gateway-Token"
)
