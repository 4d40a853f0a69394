// Package config externalises the page-size and policy knobs a metric tree
// needs instead of carrying them as global constants: there is no
// process-wide state, every tree and page manager is constructed from an
// explicit IndexConfig value.
package config

import "time"

// ChoicePolicy selects which child an index node descends into during
// insertion.
type ChoicePolicy int

const (
	// MinOccupancy picks, among children whose covering ball already
	// contains the object, the one with fewest entries (ties broken on
	// distance to representative).
	MinOccupancy ChoicePolicy = iota
	// MinEnlargement always picks the child whose radius would grow least
	// (ties broken on current radius), without first looking for a
	// covering child. MinOccupancy falls back to the same rule when no
	// child covers the object.
	MinEnlargement
)

// PromotionPolicy selects the two representatives used to split a node.
type PromotionPolicy int

const (
	// RandomPromotion picks two arbitrary distinct members of the
	// overflowing set. Cheapest; also the guaranteed fallback when the
	// configured policy fails to produce two legal partitions.
	RandomPromotion PromotionPolicy = iota
	// MinMaxPromotion tries every unordered pair, partitions the rest by
	// nearest representative, and keeps the pair minimising the larger of
	// the two resulting covering radii.
	MinMaxPromotion
	// MSTPromotion selects the pair whose removal maximally separates the
	// minimum spanning tree of the overflowing set.
	MSTPromotion
)

// TiesPolicy controls how k-NN search treats objects tied with the current
// k-th nearest distance.
type TiesPolicy int

const (
	// KeepFirst keeps exactly k results, in the order ties were seen.
	KeepFirst TiesPolicy = iota
	// KeepAll grows the result set past k while admitted entries tie the
	// current k-th distance.
	KeepAll
)

// IndexConfig bundles every knob a MetricTree and its page manager need at
// construction time.
type IndexConfig struct {
	// PageSize is the fixed byte size of every page (including the header
	// page). Must be large enough to hold at least two leaf entries plus
	// node header and directory overhead.
	PageSize int

	// MinOccupancy is the minimum number of entries a non-root node must
	// hold after a split (occupation may transiently dip below it mid
	// rebalance, never after).
	MinOccupancy int

	// Choice selects the child-choice policy used during insertion.
	Choice ChoicePolicy

	// Promotion selects the split promotion policy.
	Promotion PromotionPolicy

	// Ties selects the k-NN ties policy.
	Ties TiesPolicy

	// DiskCacheSize is the number of recently used pages the plain-disk
	// page manager keeps resident; 0 selects the default of 16.
	DiskCacheSize int

	// StatsEnabled turns on per-level disk access counters.
	StatsEnabled bool

	// OpTimeout is carried in the config but no operation in this module
	// reads it: range and k-NN queries run to completion and check no
	// deadline or cancellation flag.
	OpTimeout time.Duration
}

// DefaultDiskCacheSize is used when IndexConfig.DiskCacheSize is left at 0.
const DefaultDiskCacheSize = 16

// Normalize fills in zero-valued fields with their defaults and returns the
// resulting config; it never mutates the receiver.
func (c IndexConfig) Normalize() IndexConfig {
	out := c
	if out.PageSize <= 0 {
		out.PageSize = 4096
	}
	if out.MinOccupancy <= 0 {
		out.MinOccupancy = 2
	}
	if out.DiskCacheSize <= 0 {
		out.DiskCacheSize = DefaultDiskCacheSize
	}
	return out
}
