package tracking

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// MergeBlendFactor is the interpolation factor applied when a fresh
	// detection result replaces the displayed set.
	MergeBlendFactor = 0.35
	// StepBlendFactor is the (gentler) interpolation factor applied on every
	// animation frame between detection results.
	StepBlendFactor = 0.18

	mergeMatchThreshold = 0.15
	stepMatchThreshold  = 0.05

	// stabilityThreshold is the IoU above which a matched box is frozen
	// instead of eased, so a static camera over a static shelf does not
	// produce jittering overlays.
	stabilityThreshold = 0.82
)

// DetectedItem is one raw result from a detection cycle. It carries no
// identity across cycles.
type DetectedItem struct {
	Label string      `json:"label"`
	Box   BoundingBox `json:"bbox"`
}

// TrackedItem is the displayed analogue of [DetectedItem]. Its ID is assigned
// when the item first appears and survives as long as the item keeps matching
// incoming detections. Label and Box are owned by the tracker and only
// mutated through [MergeWithPrevious] and [StepDisplayedTowardTarget].
type TrackedItem struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Box   BoundingBox `json:"bbox"`
}

// MatchOption adjusts a single merge or step call.
type MatchOption func(*matchOptions)

type matchOptions struct {
	blendFactor float64
}

// WithBlendFactor overrides the interpolation factor for one call.
func WithBlendFactor(factor float64) MatchOption {
	return func(o *matchOptions) { o.blendFactor = factor }
}

// MergeWithPrevious reconciles the displayed set with a freshly detected
// batch. Every target item claims the unmatched displayed item it overlaps
// best (IoU above the match threshold); matched items keep their identity,
// keep their label unless the new one is more specific, and are either frozen
// (near-identical redetection) or eased toward the new box. Unmatched target
// items are appended as new tracked items; unmatched displayed items are
// dropped, because a detection result is authoritative for what is visible.
//
// Calling with an empty target therefore yields an empty result.
func MergeWithPrevious(displayed []TrackedItem, target []DetectedItem, opts ...MatchOption) []TrackedItem {
	options := matchOptions{blendFactor: MergeBlendFactor}
	for _, opt := range opts {
		opt(&options)
	}
	return reconcile(displayed, target, mergeMatchThreshold, options.blendFactor, true)
}

// StepDisplayedTowardTarget eases the displayed set toward the last received
// detection batch. It runs once per animation frame, far more often than
// detections arrive, and uses a lower match threshold since the sets are
// already close. Unmatched target items are appended verbatim; unmatched
// displayed items are dropped.
func StepDisplayedTowardTarget(displayed []TrackedItem, target []DetectedItem, opts ...MatchOption) []TrackedItem {
	options := matchOptions{blendFactor: StepBlendFactor}
	for _, opt := range opts {
		opt(&options)
	}
	return reconcile(displayed, target, stepMatchThreshold, options.blendFactor, false)
}

func reconcile(displayed []TrackedItem, target []DetectedItem, matchThreshold, blendFactor float64, upgradeLabels bool) []TrackedItem {
	claimed := make([]bool, len(displayed))
	next := make([]TrackedItem, 0, len(target))

	for _, detected := range target {
		bestIndex := -1
		bestIoU := 0.0
		for i, item := range displayed {
			if claimed[i] {
				continue
			}
			if overlap := IoU(item.Box, detected.Box); overlap > bestIoU {
				bestIoU = overlap
				bestIndex = i
			}
		}

		if bestIndex < 0 || bestIoU <= matchThreshold {
			next = append(next, TrackedItem{
				ID:    uuid.NewString(),
				Label: detected.Label,
				Box:   detected.Box.Clamped(),
			})
			continue
		}

		claimed[bestIndex] = true
		previous := displayed[bestIndex]
		item := TrackedItem{ID: previous.ID, Label: previous.Label, Box: previous.Box}
		if upgradeLabels && labelUpgrades(previous.Label, detected.Label) {
			item.Label = detected.Label
		}
		if bestIoU < stabilityThreshold {
			item.Box = Lerp(previous.Box, detected.Box.Clamped(), blendFactor)
		}
		next = append(next, item)
	}

	return next
}

// genericLabels are the catch-all nouns a detector falls back to when it
// cannot tell what a product actually is.
var genericLabels = map[string]struct{}{
	"box":       {},
	"bottle":    {},
	"can":       {},
	"container": {},
	"item":      {},
	"jar":       {},
	"object":    {},
	"pack":      {},
	"packet":    {},
	"product":   {},
	"thing":     {},
}

func isGenericLabel(label string) bool {
	label = strings.ToLower(strings.TrimSpace(label))
	if len(label) <= 3 {
		return true
	}
	_, ok := genericLabels[label]
	return ok
}

// labelUpgrades reports whether the new label is specific enough to replace
// the previous one. A specific identification is never downgraded to a later
// generic redetection, while an initial generic label is upgraded once a
// specific one arrives.
func labelUpgrades(previous, next string) bool {
	if !isGenericLabel(previous) || isGenericLabel(next) {
		return false
	}
	previous = strings.TrimSpace(previous)
	next = strings.TrimSpace(next)
	return len(next) >= len(previous) || strings.Contains(next, " ")
}
