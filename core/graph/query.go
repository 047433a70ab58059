package graph

import (
	"fmt"

	"github.com/mlehmk/fabula/model"
)

// EdgeKind selects which edge sets a traversal follows.
type EdgeKind string

const (
	EdgeKindTemporal EdgeKind = "temporal"
	EdgeKindSemantic EdgeKind = "semantic"
)

// TraversalResult contains an event id and its distance from the source
type TraversalResult struct {
	EventID  string
	Distance int
	Path     []string // Path from source to this event
}

// successors returns the adjacent event ids for the selected edge kinds.
func successors(eventGraph *model.EventGraph, eventID string, kinds []EdgeKind) []string {
	var targets []string
	for _, kind := range kinds {
		switch kind {
		case EdgeKindTemporal:
			for _, link := range eventGraph.TemporalEdges[eventID] {
				targets = append(targets, link.ToEventID)
			}
		case EdgeKindSemantic:
			for _, link := range eventGraph.SemanticEdges[eventID] {
				targets = append(targets, link.ToEventID)
			}
		}
	}
	return targets
}

// BFS performs breadth-first search over the event graph from a source event
func BFS(memoryGraph *model.MemoryGraph, sourceID string, maxHops int, kinds []EdgeKind) ([]*TraversalResult, error) {
	if !memoryGraph.EventIDs()[sourceID] {
		return nil, fmt.Errorf("unknown event %s", sourceID)
	}
	if len(kinds) == 0 {
		kinds = []EdgeKind{EdgeKindTemporal, EdgeKindSemantic}
	}

	visited := map[string]bool{sourceID: true}
	queue := []TraversalResult{{
		EventID:  sourceID,
		Distance: 0,
		Path:     []string{sourceID},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		// Stop if we've reached max hops
		if current.Distance >= maxHops {
			continue
		}

		for _, targetID := range successors(memoryGraph.EventGraph, current.EventID, kinds) {
			if visited[targetID] {
				continue
			}
			visited[targetID] = true

			newPath := make([]string, len(current.Path))
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, TraversalResult{
				EventID:  targetID,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search over the event graph from a source event
func DFS(memoryGraph *model.MemoryGraph, sourceID string, maxHops int, kinds []EdgeKind) ([]*TraversalResult, error) {
	if !memoryGraph.EventIDs()[sourceID] {
		return nil, fmt.Errorf("unknown event %s", sourceID)
	}
	if len(kinds) == 0 {
		kinds = []EdgeKind{EdgeKindTemporal, EdgeKindSemantic}
	}

	visited := make(map[string]bool)
	var results []*TraversalResult
	dfsRecursive(memoryGraph.EventGraph, sourceID, 0, maxHops, []string{sourceID}, kinds, visited, &results)
	return results, nil
}

// dfsRecursive is the recursive helper for DFS
func dfsRecursive(
	eventGraph *model.EventGraph,
	current string,
	distance int,
	maxHops int,
	path []string,
	kinds []EdgeKind,
	visited map[string]bool,
	results *[]*TraversalResult,
) {
	visited[current] = true

	pathCopy := make([]string, len(path))
	copy(pathCopy, path)
	*results = append(*results, &TraversalResult{
		EventID:  current,
		Distance: distance,
		Path:     pathCopy,
	})

	// Stop if we've reached max hops
	if distance >= maxHops {
		return
	}

	for _, targetID := range successors(eventGraph, current, kinds) {
		if visited[targetID] {
			continue
		}

		newPath := make([]string, len(path))
		copy(newPath, path)
		newPath = append(newPath, targetID)

		dfsRecursive(eventGraph, targetID, distance+1, maxHops, newPath, kinds, visited, results)
	}
}

// Neighbors retrieves the immediate neighbors (1-hop) of an event
func Neighbors(memoryGraph *model.MemoryGraph, eventID string, kinds []EdgeKind) ([]string, error) {
	results, err := BFS(memoryGraph, eventID, 1, kinds)
	if err != nil {
		return nil, err
	}

	// Skip the source event itself (first result)
	neighbors := make([]string, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		neighbors = append(neighbors, results[i].EventID)
	}

	return neighbors, nil
}
