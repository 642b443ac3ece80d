package core

// ResolveFolderPath returns the sanitized path segments, root first, of the
// folder with the given id by following ParentID links through folders.
//
// visited records the IDs already walked. When the chain revisits an ID
// (a cycle) or reaches an unknown parent, the walk stops and the path is
// truncated there. Pass nil to start a fresh walk. An unknown id yields nil.
func ResolveFolderPath(id string, folders map[string]Folder, visited map[string]bool) []string {
	if visited == nil {
		visited = make(map[string]bool)
	}

	var reversed []string
	for cur := id; cur != ""; {
		if visited[cur] {
			break
		}
		f, ok := folders[cur]
		if !ok {
			break
		}
		visited[cur] = true
		reversed = append(reversed, Sanitize(f.Name))
		cur = f.ParentID
	}

	segments := make([]string, len(reversed))
	for i, s := range reversed {
		segments[len(reversed)-1-i] = s
	}
	if len(segments) == 0 {
		return nil
	}
	return segments
}

// OrderParentsFirst returns folders reordered so every folder comes after its
// parent when the parent is in the list. The order is otherwise stable.
// Folders caught in a parent cycle keep their relative input order at the
// point the cycle is detected.
func OrderParentsFirst(folders []Folder) []Folder {
	byID := make(map[string]int, len(folders))
	for i, f := range folders {
		if f.ID != "" {
			if _, dup := byID[f.ID]; !dup {
				byID[f.ID] = i
			}
		}
	}

	out := make([]Folder, 0, len(folders))
	placed := make([]bool, len(folders))
	visiting := make([]bool, len(folders))

	var place func(i int)
	place = func(i int) {
		if placed[i] || visiting[i] {
			return
		}
		visiting[i] = true
		if p, ok := byID[folders[i].ParentID]; ok && p != i {
			place(p)
		}
		visiting[i] = false
		if !placed[i] {
			placed[i] = true
			out = append(out, folders[i])
		}
	}

	for i := range folders {
		place(i)
	}
	return out
}
