package petri

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// NodeRecord is the serialised form of one net node. Place names are their
// numeric ids rendered as strings; a transition's successors are place ids
// rendered as strings, and a place's successors are transition names.
type NodeRecord struct {
	Type      string   `json:"type"`
	Name      string   `json:"name"`
	Successor []string `json:"successor"`
}

// GenerateJSON serialises the net, one record per node in insertion order.
// Successor lists follow ascending node-id order so output is stable.
func (n *Net) GenerateJSON() (string, error) {
	records := make([]NodeRecord, 0, len(n.order))
	for _, id := range n.order {
		node := n.nodes[id]

		record := NodeRecord{Type: node.Kind.String(), Successor: []string{}}
		switch node.Kind {
		case KindPlace:
			record.Name = strconv.Itoa(node.ID)
			for _, succID := range sortedSuccessors(node) {
				record.Successor = append(record.Successor, n.nodes[succID].Name)
			}
		case KindTransition:
			record.Name = node.Name
			for _, succID := range sortedSuccessors(node) {
				record.Successor = append(record.Successor, strconv.Itoa(succID))
			}
		}
		records = append(records, record)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseJSON reconstructs a net from GenerateJSON output. Transition ids are
// not part of the serialisation, so fresh ones are allocated past the place
// id range; token counts are lost. The round trip preserves node set and
// edges.
func ParseJSON(data string) (*Net, error) {
	var records []NodeRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, err
	}

	net := NewNet()

	// First pass: create places under their original ids and find the
	// highest one so transition ids cannot collide.
	nextID := 1
	for _, record := range records {
		if record.Type != "place" {
			continue
		}
		id, err := strconv.Atoi(record.Name)
		if err != nil {
			return nil, fmt.Errorf("place name %q is not an id: %w", record.Name, err)
		}
		if err := net.AddPlace(id); err != nil {
			return nil, err
		}
		if id >= nextID {
			nextID = id + 1
		}
	}

	// Second pass: create transitions.
	transitionID := make(map[string]int)
	for _, record := range records {
		switch record.Type {
		case "place":
		case "transition":
			id := nextID
			nextID++
			if err := net.AddTransition(record.Name, id); err != nil {
				return nil, err
			}
			transitionID[record.Name] = id
		default:
			return nil, fmt.Errorf("unknown node type %q", record.Type)
		}
	}

	// Third pass: edges.
	for _, record := range records {
		if record.Type == "place" {
			sourceID, _ := strconv.Atoi(record.Name)
			for _, succ := range record.Successor {
				targetID, ok := transitionID[succ]
				if !ok {
					return nil, fmt.Errorf("place successor %q is not a transition", succ)
				}
				if err := net.AddEdge(sourceID, targetID); err != nil {
					return nil, err
				}
			}
			continue
		}
		sourceID := transitionID[record.Name]
		for _, succ := range record.Successor {
			targetID, err := strconv.Atoi(succ)
			if err != nil {
				return nil, fmt.Errorf("transition successor %q is not a place id: %w", succ, err)
			}
			if err := net.AddEdge(sourceID, targetID); err != nil {
				return nil, err
			}
		}
	}

	return net, nil
}
