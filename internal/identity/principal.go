package identity

// Principal is the verified identity attached to a single request.
//
// Invariants:
// - Produced only by token decoding or by trusting the edge-stamped headers.
// - Never persisted; its lifetime is exactly one request/response cycle.
// - Role is always a canonical Role (see NormalizeRole).
type Principal struct {
	UserID   int64
	Username string
	Role     Role
}
