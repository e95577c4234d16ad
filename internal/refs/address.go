package refs

import (
	"fmt"
	"math/bits"
)

// AddressTranslator resolves a ReFS Virtual Cluster Number (the cluster
// address embedded in every page reference and index entry) to an
// absolute Logical Cluster Number on the underlying volume, by way of the
// Container Table. Every container holds the same fixed number of
// clusters (a power of two); a VCN's Container Table key is the VCN shifted
// right by log2 of that size plus one (see ContainerKey), its in-container
// offset is its low bits masked by that size minus one, and the container's
// physical base LCN comes from the Container Table entry for that key.
type AddressTranslator struct {
	clusterSize          int
	clustersPerContainer uint64
	containerBaseLCN     map[uint64]uint64 // container index -> physical base LCN
}

// NewAddressTranslator builds a translator from the volume's cluster size
// and container size (both read from the VBR), populated with the
// Container Table's entries once they are known.
func NewAddressTranslator(clusterSize int, containerSizeClusters uint32) *AddressTranslator {
	return &AddressTranslator{
		clusterSize:          clusterSize,
		clustersPerContainer: uint64(containerSizeClusters),
		containerBaseLCN:     map[uint64]uint64{},
	}
}

// AddContainer records the physical base LCN backing one container index,
// as read from a Container Table entry.
func (t *AddressTranslator) AddContainer(index, baseLCN uint64) {
	t.containerBaseLCN[index] = baseLCN
}

// Count reports how many Container Table entries this translator has
// resolved, for reporting the shape of a volume without exposing the
// container map itself.
func (t *AddressTranslator) Count() int {
	return len(t.containerBaseLCN)
}

// ContainerKey computes the Container Table lookup key for a VCN: the
// container index shifted to match the original analyzer's lcn_to_vcn
// convention (entry_key = lcn >> (log2(clusters_per_container)+1)).
func (t *AddressTranslator) ContainerKey(vcn uint64) uint64 {
	shift := bits.Len64(t.clustersPerContainer-1) + 1
	return vcn >> uint(shift)
}

// Translate resolves a container-relative cluster reference (as stored in
// the checkpoint and in every index entry that points at another page) to
// an absolute byte offset on the volume. This mirrors the original
// analyzer's lcn_to_vcn: the input is looked up in the Container Table by
// its ContainerKey, and the table entry's start-cluster is added to the
// low (cpc-1)-masked bits of the input to get the resolved, directly
// seekable cluster number.
func (t *AddressTranslator) Translate(ref uint64) (int64, error) {
	if t.clustersPerContainer == 0 {
		return 0, fmt.Errorf("refs: address translator has no clusters_per_container")
	}

	entryKey := t.ContainerKey(ref)
	base, ok := t.containerBaseLCN[entryKey]
	if !ok {
		return 0, fmt.Errorf("refs: no container table entry for key %d (ref %d)", entryKey, ref)
	}

	resolved := base + (ref & (t.clustersPerContainer - 1))
	return int64(resolved) * int64(t.clusterSize), nil
}
