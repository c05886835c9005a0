package ids

import "sort"

// Reconcile returns the reference ids that are not already known, compared
// by Key. Duplicates in reference collapse to their first occurrence and the
// result keeps reference order. No I/O, no mutation of the inputs.
func Reconcile(known, reference []GameID) []GameID {
	seen := make(map[Key]struct{}, len(known)+len(reference))
	for _, id := range known {
		seen[id.Key()] = struct{}{}
	}

	missing := make([]GameID, 0)
	for _, id := range reference {
		k := id.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		missing = append(missing, id)
	}
	return missing
}

// KeySet collects the identities of ids
func KeySet(list []GameID) map[Key]struct{} {
	set := make(map[Key]struct{}, len(list))
	for _, id := range list {
		set[id.Key()] = struct{}{}
	}
	return set
}

// Strings serializes ids, sorted, mainly for logs and notifications
func Strings(list []GameID) []string {
	out := make([]string, 0, len(list))
	for _, id := range list {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}
