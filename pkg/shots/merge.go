package shots

// Merge concatenates lists in priority order and keeps the first URL seen for every key.
// Relative order of first appearance is preserved; empty strings are dropped.
// A nil key function compares URLs verbatim.
func Merge(key func(string) string, lists ...[]string) []string {
	if key == nil {
		key = func(u string) string { return u }
	}

	total := 0
	for _, l := range lists {
		total += len(l)
	}
	out := make([]string, 0, total)
	seen := make(map[string]struct{}, total)

	for _, l := range lists {
		for _, u := range l {
			if u == "" {
				continue
			}
			k := key(u)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}
