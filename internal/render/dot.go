// Package render turns Petri nets into Graphviz DOT documents.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/proc-discovery/internal/petri"
)

// GenerateDotCode renders the net as a Graphviz digraph. Places are
// circles, labelled "start" when they carry a token and blank otherwise;
// transitions are boxes labelled with the activity name. Node ids carry
// an "x" prefix so numeric ids are valid DOT identifiers.
func GenerateDotCode(net *petri.Net) string {
	var sb strings.Builder
	sb.WriteString("digraph SourceGra {\n")

	for _, id := range net.NodeIDs() {
		node := net.Node(id)
		switch node.Kind {
		case petri.KindPlace:
			label := " "
			if node.Tokens > 0 {
				label = "start"
			}
			sb.WriteString(fmt.Sprintf("x%d [shape = circle label=%q];\n", id, label))
		case petri.KindTransition:
			sb.WriteString(fmt.Sprintf("x%d [shape = box label=%q];\n", id, node.Name))
		}
	}

	for _, id := range net.NodeIDs() {
		node := net.Node(id)
		succs := make([]int, 0, len(node.Successors))
		for succID := range node.Successors {
			succs = append(succs, succID)
		}
		sort.Ints(succs)
		for _, succID := range succs {
			sb.WriteString(fmt.Sprintf("x%d -> x%d;\n", id, succID))
		}
	}

	sb.WriteString("}")
	return sb.String()
}

// WriteDotFile renders the net and writes it to the given path, creating
// parent directories as needed.
func WriteDotFile(net *petri.Net, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, []byte(GenerateDotCode(net)), 0644)
}
