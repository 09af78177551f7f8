package audiocore

import (
	"fmt"
	"io"
)

// WriteDOT renders the diagram as a Graphviz DOT graph (spec.md §6
// "Graph visualization (debug)"): one node per block, labelled with its
// name and kind, and one edge per connection, labelled with the port
// type flowing across it.
func (d *Diagram) WriteDOT(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, err := fmt.Fprintf(w, "digraph %s {\n", dotID(d.UUID.String())); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "  rankdir=LR;\n"); err != nil {
		return err
	}

	for _, id := range d.order {
		b := d.blocks[id]
		if _, err := fmt.Fprintf(w, "  %s [label=%q, shape=box];\n", dotNode(id), fmt.Sprintf("%s\n(%s)", b.Name, b.Kind)); err != nil {
			return err
		}
	}

	for _, c := range d.connections {
		label := "?"
		if srcBlock, ok := d.blocks[c.Src.BlockID]; ok {
			if srcPort, err := srcBlock.OutputPort(c.Src.Port); err == nil {
				label = srcPort.PortType.String()
			}
		}
		if _, err := fmt.Fprintf(w, "  %s -> %s [label=%q];\n", dotNode(c.Src.BlockID), dotNode(c.Dst.BlockID), label); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

func dotNode(id BlockID) string { return fmt.Sprintf("block_%d", id) }

// dotID strips characters DOT's unquoted ID form disallows; the
// diagram UUID is hyphenated, so this just substitutes underscores.
func dotID(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			out[i] = '_'
		} else {
			out[i] = s[i]
		}
	}
	return "diagram_" + string(out)
}
