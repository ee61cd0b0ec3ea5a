package diagram

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDiagram is returned for xml that does not describe any process.
var ErrInvalidDiagram = errors.New("invalid bpmn diagram")

// Parse decodes BPMN 2.0 xml and indexes its flow nodes, sequence flows and
// diagram interchange shapes.
func Parse(bpmnXml string) (*Definitions, error) {
	if strings.TrimSpace(bpmnXml) == "" {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDiagram)
	}
	var definitions Definitions
	if err := xml.Unmarshal([]byte(bpmnXml), &definitions); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDiagram, err)
	}
	if len(definitions.Processes) == 0 {
		return nil, fmt.Errorf("%w: no process found", ErrInvalidDiagram)
	}
	definitions.index()
	return &definitions, nil
}

func (d *Definitions) index() {
	d.nodes = map[string]FlowNode{}
	d.flows = map[string]SequenceFlow{}
	d.shapes = map[string]Shape{}
	d.edges = map[string]Edge{}
	for _, process := range d.Processes {
		for _, node := range process.Nodes {
			d.nodes[node.Id] = node
		}
		for _, flow := range process.Flows {
			d.flows[flow.Id] = flow
		}
	}
	for _, diagram := range d.Diagrams {
		for _, plane := range diagram.Planes {
			for _, shape := range plane.Shapes {
				d.shapes[shape.BpmnElement] = shape
			}
			for _, edge := range plane.Edges {
				d.edges[edge.BpmnElement] = edge
			}
		}
	}
}

// FlowNode returns the node with the given diagram element id.
func (d *Definitions) FlowNode(id string) (FlowNode, bool) {
	node, ok := d.nodes[id]
	return node, ok
}

func (d *Definitions) SequenceFlow(id string) (SequenceFlow, bool) {
	flow, ok := d.flows[id]
	return flow, ok
}

// Shape returns the diagram shape drawn for the element id.
func (d *Definitions) Shape(elementId string) (Shape, bool) {
	shape, ok := d.shapes[elementId]
	return shape, ok
}

func (d *Definitions) Edge(elementId string) (Edge, bool) {
	edge, ok := d.edges[elementId]
	return edge, ok
}

// FlowNodes returns all nodes of all processes in document order.
func (d *Definitions) FlowNodes() []FlowNode {
	var nodes []FlowNode
	for _, process := range d.Processes {
		nodes = append(nodes, process.Nodes...)
	}
	return nodes
}

// SequenceFlows returns all flows of all processes in document order.
func (d *Definitions) SequenceFlows() []SequenceFlow {
	var flows []SequenceFlow
	for _, process := range d.Processes {
		flows = append(flows, process.Flows...)
	}
	return flows
}
