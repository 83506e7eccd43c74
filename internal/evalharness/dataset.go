package evalharness

import "github.com/ctxhq/ctx/internal/errorkit"

// ValidateDataset enforces spec.md §4.12 step 1: the dataset must declare
// the schema version this package understands, and at least one entry
// must carry expectedFilePaths (a dataset of pure expectedAnswer entries
// has nothing this retrieval-only harness can score).
func ValidateDataset(d Dataset) error {
	if d.Version != DatasetVersion {
		return errorkit.Eval(errorkit.EvalDatasetInvalid,
			"unsupported golden dataset version "+d.Version+", expected "+DatasetVersion, nil)
	}
	if len(d.Entries) == 0 {
		return errorkit.Eval(errorkit.EvalDatasetInvalid, "golden dataset has no entries", nil)
	}
	for _, e := range d.Entries {
		if len(e.ExpectedFilePaths) > 0 {
			return nil
		}
	}
	return errorkit.Eval(errorkit.EvalDatasetInvalid,
		"golden dataset has no entry with expectedFilePaths", nil)
}

// FilterByTags keeps entries sharing at least one tag with requested
// (spec.md §4.12 step 2). An empty requested list is a no-op.
func FilterByTags(entries []GoldenEntry, requested []string) []GoldenEntry {
	if len(requested) == 0 {
		return entries
	}
	want := make(map[string]struct{}, len(requested))
	for _, t := range requested {
		want[t] = struct{}{}
	}

	var kept []GoldenEntry
	for _, e := range entries {
		for _, t := range e.Tags {
			if _, ok := want[t]; ok {
				kept = append(kept, e)
				break
			}
		}
	}
	return kept
}

// dedupePreservingOrder removes repeated file paths, keeping each one's
// first occurrence rank (spec.md §4.12 step 4).
func dedupePreservingOrder(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
