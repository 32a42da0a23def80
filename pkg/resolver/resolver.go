// Package resolver orders skills so that every skill runs after its
// dependencies.
package resolver

import (
	"strings"

	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// ErrCycleDetected is returned when the dependency graph has a cycle
var ErrCycleDetected = errors.New("dependency cycle detected")

// Graph maps a skill id to the ids it depends on
type Graph map[string][]string

// BuildGraph builds the dependency graph restricted to the given skills.
// Dependencies on skills outside the set are dropped; optional dependencies
// never block a composition. Every skill has an entry, possibly empty.
func BuildGraph(skills []*skilltypes.Skill) Graph {
	present := make(map[string]bool, len(skills))
	for _, s := range skills {
		present[s.ID] = true
	}

	graph := make(Graph, len(skills))
	for _, s := range skills {
		deps := []string{}
		seen := make(map[string]bool)
		for _, dep := range s.Dependencies {
			if present[dep] && !seen[dep] {
				seen[dep] = true
				deps = append(deps, dep)
			}
		}
		graph[s.ID] = deps
	}
	return graph
}

// TopologicalSort orders ids with Kahn's algorithm. Nodes that become ready
// at the same time keep their relative order from ids, so the result is
// deterministic. Edges to ids not in the list are ignored. If any node is
// left unvisited the graph is cyclic and ErrCycleDetected is returned
// instead of a partial order.
func TopologicalSort(ids []string, graph Graph) ([]string, error) {
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	inDegree := make(map[string]int, len(ids))
	dependants := make(map[string][]string, len(ids))
	for _, id := range ids {
		for _, dep := range graph[id] {
			if !present[dep] {
				continue
			}
			inDegree[id]++
			dependants[dep] = append(dependants[dep], id)
		}
	}

	queue := make([]string, 0, len(ids))
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(ids))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, next := range dependants[node] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(ids) {
		var stuck []string
		for _, id := range ids {
			if inDegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, errors.Wrapf(ErrCycleDetected, "unresolved skills: %s", strings.Join(stuck, ", "))
	}
	return order, nil
}

// Resolve builds the restricted graph for skills and orders it
func Resolve(skills []*skilltypes.Skill) (Graph, []string, error) {
	graph := BuildGraph(skills)
	ids := make([]string, len(skills))
	for i, s := range skills {
		ids[i] = s.ID
	}
	order, err := TopologicalSort(ids, graph)
	if err != nil {
		return graph, nil, err
	}
	return graph, order, nil
}

// RespectsOrder reports whether order places every dependency of graph
// before its dependant. Ids missing from order are treated as violations.
func RespectsOrder(order []string, graph Graph) bool {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for id, deps := range graph {
		p, ok := pos[id]
		if !ok {
			return false
		}
		for _, dep := range deps {
			q, ok := pos[dep]
			if !ok || q >= p {
				return false
			}
		}
	}
	return true
}
