package practice

// normalizeIDs drops empty strings and duplicates, keeping first-seen order.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// restrictIDs normalizes ids and keeps only those in known.
func restrictIDs(ids []string, known map[string]struct{}) []string {
	out := normalizeIDs(ids)
	kept := out[:0]
	for _, id := range out {
		if _, ok := known[id]; ok {
			kept = append(kept, id)
		}
	}
	return kept
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// setMembership adds or removes id, leaving the order of other members intact.
func setMembership(ids []string, id string, member bool) []string {
	if member {
		if containsID(ids, id) {
			return ids
		}
		return append(ids, id)
	}
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// dedupeInts removes duplicates, keeping first-seen order. Never returns nil.
func dedupeInts(values []int) []int {
	out := make([]int, 0, len(values))
	seen := make(map[int]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// sameIntSet compares two int slices as sets.
func sameIntSet(a, b []int) bool {
	as := make(map[int]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[int]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}

func clampIndex(idx, count int) int {
	if count <= 0 || idx < 0 {
		return 0
	}
	if idx > count-1 {
		return count - 1
	}
	return idx
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
