package coordinator

import (
	"fmt"
	"hash/fnv"
)

// prefix2 computes the two-hex-character directory prefix used to fan
// out both the lock namespace (/locks/<prefix2>/<name>) and the node
// registry namespace (/nodes/<prefix2>/<uuid>), per spec.md §4.1: the
// low byte of the 32-bit FNV-1a hash of the name, as two lowercase hex
// characters. Only the ZooKeeper backend builds paths with it; the
// in-memory backend keys its maps by lock name and node UUID directly.
func prefix2(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum32()
	return fmt.Sprintf("%02x", byte(sum))
}

func lockPath(root, name string) string {
	return fmt.Sprintf("%s/locks/%s/%s", root, prefix2(name), name)
}

func nodePath(root, uuid string) string {
	return fmt.Sprintf("%s/nodes/%s/%s", root, prefix2(uuid), uuid)
}
