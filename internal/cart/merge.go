package cart

import "github.com/fjod/go_storefront/internal/domain"

// Merge reconciles a local snapshot with the remote one at sign-in.
//
// An empty side never overrides the other. Otherwise lines are keyed by
// (id, variant); a local line replaces the remote one when either lacks a
// timestamp, when it is strictly newer, or on a timestamp tie with a larger
// quantity. Remote lines come first in remote order, followed by local-only
// lines in local order. Lines absent locally are kept.
func Merge(local, remote []domain.CartItem) []domain.CartItem {
	if len(local) == 0 {
		return domain.CloneItems(remote)
	}
	if len(remote) == 0 {
		return domain.CloneItems(local)
	}

	merged := make([]domain.CartItem, 0, len(remote)+len(local))
	index := make(map[string]int, len(remote)+len(local))
	for _, it := range remote {
		if i, ok := index[it.Key()]; ok {
			merged[i] = it
			continue
		}
		index[it.Key()] = len(merged)
		merged = append(merged, it)
	}

	for _, it := range local {
		i, ok := index[it.Key()]
		if !ok {
			index[it.Key()] = len(merged)
			merged = append(merged, it)
			continue
		}
		if localWins(it, merged[i]) {
			merged[i] = it
		}
	}
	return merged
}

func localWins(local, remote domain.CartItem) bool {
	if !local.HasTimestamp() || !remote.HasTimestamp() {
		return true
	}
	if local.UpdatedAt != remote.UpdatedAt {
		return local.UpdatedAt > remote.UpdatedAt
	}
	return local.Quantity > remote.Quantity
}
