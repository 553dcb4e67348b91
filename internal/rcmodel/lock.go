package rcmodel

// NonBlockingLockInfo is the payload persisted by the coordinator for an
// active lock: its name and the NodeID currently holding it. Exactly one
// NodeID is recorded as owner for any active lock.
type NonBlockingLockInfo struct {
	Name  string `json:"name"`
	Owner NodeID `json:"owner"`
}
