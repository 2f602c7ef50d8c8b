package notebook

import (
	"github.com/sakif/devnote/internal/model"
)

// BuildTree assembles categories into a forest and annotates every node with
// its direct and aggregate note counts.
//
// Notes are matched to categories by case-insensitive name; a note with an
// empty category counts towards fallbackName. Parent links are allowed to be
// broken: a category whose parent does not exist is a root, and a cycle is
// cut where the walk first re-enters it, so every call terminates and every
// count is finite.
func BuildTree(categories []model.Category, notes []model.Note, fallbackName string) model.CategoryTree {
	cats := make([]model.Category, 0, len(categories))
	for _, c := range categories {
		if c.ID != RootCategoryID {
			cats = append(cats, c)
		}
	}
	g := newGraph(cats)
	direct := directCounts(notes, fallbackName)
	totals := g.aggregate(func(i int) int { return direct[foldName(cats[i].Name)] })

	tree := model.CategoryTree{Roots: []*model.CategoryNode{}, TotalNotes: len(notes)}
	nodes := make([]*model.CategoryNode, len(cats))
	for i, c := range cats {
		c.ParentID = clonePtr(c.ParentID)
		nodes[i] = &model.CategoryNode{
			Category:    c,
			DirectCount: direct[foldName(c.Name)],
			TotalCount:  totals[i],
			Children:    []*model.CategoryNode{},
		}
	}

	// Breadth-first from the real roots, then from any category a cycle kept
	// out of reach. Each node is attached once, so the result has no cycles.
	attached := make([]bool, len(cats))
	attach := func(root int) {
		attached[root] = true
		tree.Roots = append(tree.Roots, nodes[root])
		queue := []int{root}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, child := range g.children[cur] {
				if attached[child] {
					continue
				}
				attached[child] = true
				nodes[cur].Children = append(nodes[cur].Children, nodes[child])
				queue = append(queue, child)
			}
		}
	}
	for _, r := range g.roots {
		attach(r)
	}
	for i := range cats {
		if !attached[i] {
			attach(i)
		}
	}
	return tree
}

// directCounts counts notes per folded category name.
func directCounts(notes []model.Note, fallbackName string) map[string]int {
	counts := make(map[string]int)
	for _, n := range notes {
		name := n.Category
		if foldName(name) == "" {
			name = fallbackName
		}
		counts[foldName(name)]++
	}
	return counts
}

// graph is an arena view of the categories: parent links resolved to indexes.
type graph struct {
	byID     map[string]int
	children [][]int
	roots    []int
}

func newGraph(cats []model.Category) *graph {
	g := &graph{
		byID:     make(map[string]int, len(cats)),
		children: make([][]int, len(cats)),
	}
	for i, c := range cats {
		if _, dup := g.byID[c.ID]; !dup {
			g.byID[c.ID] = i
		}
	}
	for i, c := range cats {
		p, ok := g.parent(c)
		if !ok {
			g.roots = append(g.roots, i)
			continue
		}
		g.children[p] = append(g.children[p], i)
	}
	return g
}

func (g *graph) parent(c model.Category) (int, bool) {
	if c.IsTopLevel() {
		return 0, false
	}
	p, ok := g.byID[*c.ParentID]
	return p, ok
}

// aggregate computes own(i) plus the aggregate of every child for each node
// with an explicit stack. A child that is still on the current path closes a
// cycle and contributes zero; finished nodes are memoised.
func (g *graph) aggregate(own func(int) int) []int {
	const (
		unvisited = iota
		onPath
		done
	)
	type frame struct {
		node, next int
	}

	state := make([]int, len(g.children))
	totals := make([]int, len(g.children))

	for start := range g.children {
		if state[start] != unvisited {
			continue
		}
		state[start] = onPath
		stack := []frame{{node: start}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(g.children[top.node]) {
				child := g.children[top.node][top.next]
				top.next++
				if state[child] == unvisited {
					state[child] = onPath
					stack = append(stack, frame{node: child})
				}
				continue
			}

			total := own(top.node)
			for _, child := range g.children[top.node] {
				if state[child] == done {
					total += totals[child]
				}
			}
			totals[top.node] = total
			state[top.node] = done
			stack = stack[:len(stack)-1]
		}
	}
	return totals
}

// descendantIDs returns id followed by every category below it. The walk is
// iterative and visits each category at most once.
func descendantIDs(categories []model.Category, id string) []string {
	ids := []string{id}
	seen := map[string]bool{id: true}
	for i := 0; i < len(ids); i++ {
		for _, c := range categories {
			if c.ParentID != nil && *c.ParentID == ids[i] && !seen[c.ID] {
				seen[c.ID] = true
				ids = append(ids, c.ID)
			}
		}
	}
	return ids
}
