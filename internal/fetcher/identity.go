package fetcher

import "github.com/replicante-io/replicore/internal/rcerror"

// IdentityChecker verifies that every agent probed during one refresh
// agrees on the cluster's identity. The display name comes from
// discovery when it has one, otherwise from the first node; every node
// must match both the cluster_id (fixed at construction, from discovery)
// and that display name.
type IdentityChecker struct {
	clusterID   string
	displayName *string
}

// NewIdentityChecker builds a checker for clusterID, optionally seeded
// with a display name already known from discovery.
func NewIdentityChecker(clusterID string, displayName string) *IdentityChecker {
	checker := &IdentityChecker{clusterID: clusterID}
	if displayName != "" {
		checker.displayName = &displayName
	}
	return checker
}

// CheckID verifies id matches the cluster_id this checker was built
// for.
func (c *IdentityChecker) CheckID(id, nodeID string) error {
	if id == c.clusterID {
		return nil
	}
	return rcerror.New(rcerror.ClusterIDDoesNotMatch, "node %s reports cluster_id %q, expected %q", nodeID, id, c.clusterID)
}

// CheckOrSetDisplayName sets the display name on first observation and
// verifies it matches on every subsequent call.
func (c *IdentityChecker) CheckOrSetDisplayName(displayName, nodeID string) error {
	if c.displayName == nil {
		c.displayName = &displayName
		return nil
	}
	if *c.displayName == displayName {
		return nil
	}
	return rcerror.New(rcerror.ClusterDisplayNameDoesNotMatch, "node %s reports display_name %q, expected %q", nodeID, displayName, *c.displayName)
}

// DisplayName returns the display name observed so far, empty if none.
func (c *IdentityChecker) DisplayName() string {
	if c.displayName == nil {
		return ""
	}
	return *c.displayName
}
