package nuget

// OptimizeDependencies de-duplicates a parsed dependency list and merges the
// restrictions of entries naming the same package under the same
// requirement. The full restriction algebra lives in the resolver; this pass
// only guarantees the list has one entry per (package, requirement) pair.
func OptimizeDependencies(deps []Dependency) []Dependency {
	if len(deps) < 2 {
		return deps
	}

	out := make([]Dependency, 0, len(deps))
	index := make(map[string]int, len(deps))

	for _, dep := range deps {
		key := dep.Name.CompareKey() + "|" + dep.Requirement.String()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, dep)
			continue
		}

		for _, r := range dep.Restrictions {
			duplicate := false
			for _, have := range out[i].Restrictions {
				if have.Equal(r) {
					duplicate = true
					break
				}
			}
			if !duplicate {
				out[i].Restrictions = append(out[i].Restrictions, r)
			}
		}
	}

	return out
}
