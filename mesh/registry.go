package mesh

import (
	"sync"

	"github.com/paymesh/paymesh/types"
)

// Registry holds the candidate executor nodes. Reads are snapshot-consistent
// under concurrent routing: selection never observes a torn update of a
// node's load or availability.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]types.AgentNode
}

func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]types.AgentNode)}
}

// Upsert adds or replaces a node. The node is stored by value so later
// mutations by the caller cannot be observed mid-write.
func (r *Registry) Upsert(node types.AgentNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.ID] = node
}

// Remove drops a node from the candidate set.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
}

// SetLoad updates a node's reported load.
func (r *Registry) SetLoad(id string, load int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok {
		return
	}
	node.Load = load
	r.nodes[id] = node
}

// Available returns a snapshot of available nodes, optionally filtered by
// capability.
func (r *Registry) Available(capability string) []types.AgentNode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.AgentNode, 0, len(r.nodes))
	for _, node := range r.nodes {
		if !node.Available {
			continue
		}
		if capability != "" && !hasCapability(node, capability) {
			continue
		}
		out = append(out, node)
	}
	return out
}

func hasCapability(node types.AgentNode, capability string) bool {
	for _, c := range node.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
