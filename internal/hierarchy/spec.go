package hierarchy

import (
	"encoding/json"

	"github.com/klagrassa/prog-tm-bmv2/internal/serrors"
)

// wireDoc mirrors the configuration document's JSON shape:
//
//	{ "tmconfig": { "tmnodes": [
//	    { "id":<int>|"tmnode":<int>, "scheduler":"<name>", "port":<int>?,
//	      "parent":<int>? }, …
//	]}}
//
// "parent" is an extension over the source's own flat wire format (which
// never assigns one, see DESIGN.md): it names the id of another tmnode in
// the same document as this node's parent, resolving open question #1's
// depth > 1 construction gap. Unknown keys are ignored, per the
// specification.
type wireDoc struct {
	TMConfig struct {
		TMNodes []wireNode `json:"tmnodes"`
	} `json:"tmconfig"`
}

type wireNode struct {
	ID        *int   `json:"id"`
	TMNodeID  *int   `json:"tmnode"` // legacy alias for id
	Scheduler string `json:"scheduler"`
	Port      *int   `json:"port"`
	Parent    *int   `json:"parent"`
}

// NodeSpec is one parsed tmnode entry.
type NodeSpec struct {
	ID            int
	SchedulerType string
	Port          *uint32 // nil unless this node is a root bound to an egress port
	ParentID      *int    // nil iff this node is root, per spec.md's "root iff no parent"
}

// Spec is a fully parsed, not-yet-installed candidate hierarchy.
type Spec struct {
	Nodes []NodeSpec
}

// Parse decodes a configuration document into a candidate Spec. Parse
// failure (malformed JSON, no tmnodes, a node missing "id"/"tmnode" or
// "scheduler", a duplicate id, or an invalid parent) returns an error and
// leaves no state changed; the caller is
// expected to log and drop, per the reconfiguration supervisor's step 2.
func Parse(doc []byte) (*Spec, error) {
	var w wireDoc
	if err := json.Unmarshal(doc, &w); err != nil {
		return nil, serrors.Wrap("decoding configuration document", err)
	}
	spec := &Spec{}
	seen := make(map[int]bool)
	for i, wn := range w.TMConfig.TMNodes {
		id := wn.ID
		if id == nil {
			id = wn.TMNodeID
		}
		if id == nil {
			return nil, serrors.New("tmnode missing id/tmnode", "index", i)
		}
		if wn.Scheduler == "" {
			return nil, serrors.New("tmnode missing scheduler", "index", i, "id", *id)
		}
		if seen[*id] {
			return nil, serrors.New("duplicate tmnode id", "id", *id)
		}
		seen[*id] = true

		ns := NodeSpec{ID: *id, SchedulerType: wn.Scheduler, ParentID: wn.Parent}
		if wn.Port != nil {
			p := uint32(*wn.Port)
			ns.Port = &p
		}
		if ns.Port != nil && ns.ParentID != nil {
			return nil, serrors.New("tmnode binds an egress port but also declares a parent; only root nodes bind ports", "id", ns.ID)
		}
		if ns.ParentID != nil && *ns.ParentID == ns.ID {
			return nil, serrors.New("tmnode declares itself as its own parent", "id", ns.ID)
		}
		spec.Nodes = append(spec.Nodes, ns)
	}
	if len(spec.Nodes) == 0 {
		return nil, serrors.New("configuration document has no tmnodes")
	}
	if err := validateTree(spec.Nodes, seen); err != nil {
		return nil, err
	}
	return spec, nil
}

// validateTree checks that every declared parent id exists in the document
// and that no node's parent chain cycles back on itself, preserving the
// "DAG-free: tree structure" invariant spec.md §3 places on a Hierarchy.
// Forward references (a child declared before its parent) are allowed; the
// wire format carries no ordering requirement on parent/child declaration.
func validateTree(nodes []NodeSpec, seen map[int]bool) error {
	parentOf := make(map[int]int, len(nodes))
	for _, n := range nodes {
		if n.ParentID == nil {
			continue
		}
		if !seen[*n.ParentID] {
			return serrors.New("tmnode declares a parent id that does not exist", "id", n.ID, "parent", *n.ParentID)
		}
		parentOf[n.ID] = *n.ParentID
	}
	for _, n := range nodes {
		cur, hops := n.ID, 0
		for {
			parent, ok := parentOf[cur]
			if !ok {
				break
			}
			hops++
			if hops > len(nodes) {
				return serrors.New("tmnode hierarchy contains a parent cycle", "id", n.ID)
			}
			cur = parent
		}
	}
	return nil
}
