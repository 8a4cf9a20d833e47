package personnel

import "strings"

// Collision records a full name shared by more than one person.
// PersonIDs is in input order; the last id is the one the index kept.
type Collision struct {
	Name      string   `json:"name"`
	PersonIDs []string `json:"person_ids"`
}

// Index maps trimmed "first last" names to person ids.
type Index struct {
	byName   map[string]string
	Warnings []Collision
}

// BuildIndex indexes people by full name. Duplicate names resolve last-write-wins
// and are reported in Warnings.
func BuildIndex(people []Person) Index {
	idx := Index{byName: make(map[string]string, len(people))}
	seen := make(map[string][]string)
	var order []string

	for _, p := range people {
		name := p.FullName()
		if _, ok := seen[name]; !ok {
			order = append(order, name)
		}
		seen[name] = append(seen[name], p.ID)
		idx.byName[name] = p.ID
	}

	for _, name := range order {
		if ids := seen[name]; len(ids) > 1 {
			idx.Warnings = append(idx.Warnings, Collision{Name: name, PersonIDs: ids})
		}
	}
	return idx
}

// Lookup resolves a roster name.
func (i Index) Lookup(name string) (string, bool) {
	id, ok := i.byName[strings.TrimSpace(name)]
	return id, ok
}

// Len returns the number of distinct names.
func (i Index) Len() int { return len(i.byName) }
