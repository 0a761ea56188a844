package dataset

import (
	"fmt"

	"github.com/heimdalr/dag"
)

// checkCycle rejects adopting a child that would make the collection
// (transitively) contain itself. Composition trees are validated as a DAG
// over dataset names; names are the identity collections key children by.
func (c *Collection) checkCycle(child Dataset) error {
	if child.Name() == c.name {
		return fmt.Errorf("%w: %q cannot contain itself", ErrCompositionCycle, c.name)
	}

	d := dag.NewDAG()

	if err := addVertex(d, c.name); err != nil {
		return err
	}

	if err := addSubtree(d, c.name, child); err != nil {
		return err
	}

	return nil
}

func addSubtree(d *dag.DAG, parent string, node Dataset) error {
	if err := addVertex(d, node.Name()); err != nil {
		return err
	}

	// The same dataset may legitimately sit under several parents; only a
	// new edge can introduce a cycle.
	if present, err := d.IsEdge(parent, node.Name()); err == nil && present {
		return nil
	}

	if err := d.AddEdge(parent, node.Name()); err != nil {
		return fmt.Errorf("%w: adding %q under %q: %v", ErrCompositionCycle, node.Name(), parent, err)
	}

	lister, ok := node.(childLister)
	if !ok {
		return nil
	}

	for _, grandchild := range lister.Children() {
		if err := addSubtree(d, node.Name(), grandchild); err != nil {
			return err
		}
	}

	return nil
}

func addVertex(d *dag.DAG, name string) error {
	if _, err := d.GetVertex(name); err == nil {
		return nil
	}

	if err := d.AddVertexByID(name, name); err != nil {
		return fmt.Errorf("%w: vertex %q: %v", ErrCompositionCycle, name, err)
	}

	return nil
}
