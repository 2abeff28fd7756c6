package frontend

import (
	"slices"

	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/util"
	"github.com/hashicorp/go-set/v3"
)

// callees returns the top-level functions decl refers to, in order of first reference.
// Local bindings shadow top-level functions
func callees(decl *ir.FuncDecl, isFunction func(string) bool) []string {
	seen := set.New[string](4)
	var found []string
	var walk func(e ir.Expr, bound *set.Set[string])
	walk = func(e ir.Expr, bound *set.Set[string]) {
		switch e := e.(type) {
		case nil:
			return
		case *ir.Var:
			if !bound.Contains(e.Name) && isFunction(e.Name) && seen.Insert(e.Name) {
				found = append(found, e.Name)
			}
			return
		case *ir.Lambda:
			inner := bound.Copy()
			for _, p := range e.Params {
				inner.Insert(p.Name)
			}
			walk(e.Body, inner)
			return
		case *ir.Let:
			walk(e.Value, bound)
			inner := bound.Copy()
			inner.Insert(e.Name)
			walk(e.Body, inner)
			return
		case *ir.Handle:
			walk(e.Body, bound)
			for _, cl := range e.Clauses {
				inner := bound.Copy()
				for _, p := range cl.Params {
					inner.Insert(p.Name)
				}
				walk(cl.Body, inner)
			}
			if e.Return != nil {
				inner := bound.Copy()
				inner.Insert(e.Return.Param.Name)
				walk(e.Return.Body, inner)
			}
			return
		}
		for _, child := range ir.Children(e) {
			walk(child, bound)
		}
	}
	params := set.New[string](len(decl.Params))
	for _, p := range decl.Params {
		params.Insert(p.Name)
	}
	walk(decl.Body, params)
	return found
}

// group is a strongly connected component of the call graph:
// functions which have to be inferred together
type group struct {
	members []*ir.FuncDecl
	// recursive is set when some member calls a member of the group, itself included
	recursive bool
	// deps are the indices of the groups this one calls into
	deps []int
	// wave is the length of the longest chain of dependencies below this group
	wave int
}

func (g *group) names() []string {
	names := make([]string, len(g.members))
	for i, m := range g.members {
		names[i] = m.Name
	}
	return names
}

// dependencyGroups splits the functions of prog into groups (with Tarjan's algorithm).
// Groups come out in dependency order: a group only depends on groups before it
func dependencyGroups(prog *ir.Program) []*group {
	index := make(map[string]int, len(prog.Functions))
	for i, f := range prog.Functions {
		index[f.Name] = i
	}
	isFunction := func(name string) bool {
		_, ok := index[name]
		return ok
	}
	edges := make([][]int, len(prog.Functions))
	for i, f := range prog.Functions {
		for _, callee := range callees(f, isFunction) {
			edges[i] = append(edges[i], index[callee])
		}
	}

	t := tarjan{
		edges:   edges,
		indices: make([]int, len(edges)),
		lowLink: make([]int, len(edges)),
		onStack: make([]bool, len(edges)),
		groupOf: make([]int, len(edges)),
	}
	for i := range t.indices {
		t.indices[i] = -1
	}
	for v := range edges {
		if t.indices[v] < 0 {
			t.strongConnect(v)
		}
	}

	groups := make([]*group, len(t.components))
	for gi, component := range t.components {
		slices.Sort(component)
		g := &group{}
		deps := set.New[int](0)
		for _, v := range component {
			g.members = append(g.members, prog.Functions[v])
			for _, w := range edges[v] {
				if t.groupOf[w] == gi {
					g.recursive = true
				} else {
					deps.Insert(t.groupOf[w])
				}
			}
		}
		g.deps = deps.Slice()
		slices.Sort(g.deps)
		for _, d := range g.deps {
			g.wave = max(g.wave, groups[d].wave+1)
		}
		groups[gi] = g
	}
	return groups
}

type tarjan struct {
	edges      [][]int
	next       int
	indices    []int
	lowLink    []int
	onStack    []bool
	stack      util.Stack[int]
	groupOf    []int
	components [][]int
}

func (t *tarjan) strongConnect(v int) {
	t.indices[v] = t.next
	t.lowLink[v] = t.next
	t.next++
	t.stack.Push(v)
	t.onStack[v] = true

	for _, w := range t.edges[v] {
		if t.indices[w] < 0 {
			t.strongConnect(w)
			t.lowLink[v] = min(t.lowLink[v], t.lowLink[w])
		} else if t.onStack[w] {
			t.lowLink[v] = min(t.lowLink[v], t.indices[w])
		}
	}

	if t.lowLink[v] != t.indices[v] {
		return
	}
	var component []int
	for {
		w, _ := t.stack.Pop()
		t.onStack[w] = false
		t.groupOf[w] = len(t.components)
		component = append(component, w)
		if w == v {
			break
		}
	}
	t.components = append(t.components, component)
}

// waves buckets groups by wave. Groups of the same wave do not depend on each other
func waves(groups []*group) [][]*group {
	var result [][]*group
	for _, g := range groups {
		for len(result) <= g.wave {
			result = append(result, nil)
		}
		result[g.wave] = append(result[g.wave], g)
	}
	return result
}
