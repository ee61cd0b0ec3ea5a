// Copyright 2021-present ZenBPM Contributors
// (based on git commit history).
//
// ZenBPM project is available under two licenses:
//  - SPDX-License-Identifier: AGPL-3.0-or-later (See LICENSE-AGPL.md)
//  - Enterprise License (See LICENSE-ENTERPRISE.md)

package diagram

import (
	"encoding/xml"
	"fmt"
	"strings"
)

type ElementType string

const (
	StartEvent             ElementType = "startEvent"
	EndEvent               ElementType = "endEvent"
	IntermediateCatchEvent ElementType = "intermediateCatchEvent"
	IntermediateThrowEvent ElementType = "intermediateThrowEvent"
	BoundaryEvent          ElementType = "boundaryEvent"
	Task                   ElementType = "task"
	ServiceTask            ElementType = "serviceTask"
	UserTask               ElementType = "userTask"
	ScriptTask             ElementType = "scriptTask"
	BusinessRuleTask       ElementType = "businessRuleTask"
	SendTask               ElementType = "sendTask"
	ReceiveTask            ElementType = "receiveTask"
	ManualTask             ElementType = "manualTask"
	CallActivity           ElementType = "callActivity"
	SubProcess             ElementType = "subProcess"
	Transaction            ElementType = "transaction"
	AdHocSubProcess        ElementType = "adHocSubProcess"
	ExclusiveGateway       ElementType = "exclusiveGateway"
	ParallelGateway        ElementType = "parallelGateway"
	InclusiveGateway       ElementType = "inclusiveGateway"
	EventBasedGateway      ElementType = "eventBasedGateway"
	ComplexGateway         ElementType = "complexGateway"
)

var flowNodeTypes = map[string]ElementType{}

func init() {
	for _, t := range []ElementType{
		StartEvent, EndEvent, IntermediateCatchEvent, IntermediateThrowEvent, BoundaryEvent,
		Task, ServiceTask, UserTask, ScriptTask, BusinessRuleTask, SendTask, ReceiveTask, ManualTask,
		CallActivity, SubProcess, Transaction, AdHocSubProcess,
		ExclusiveGateway, ParallelGateway, InclusiveGateway, EventBasedGateway, ComplexGateway,
	} {
		flowNodeTypes[string(t)] = t
	}
}

func (t ElementType) isScope() bool {
	return t == SubProcess || t == Transaction || t == AdHocSubProcess
}

type FlowNode struct {
	Id       string      `json:"id"`
	Name     string      `json:"name,omitempty"`
	Type     ElementType `json:"type"`
	ParentId string      `json:"parentId,omitempty"` // process or sub-process containing the node
	Incoming []string    `json:"incoming,omitempty"`
	Outgoing []string    `json:"outgoing,omitempty"`
}

type SequenceFlow struct {
	Id        string `xml:"id,attr" json:"id"`
	Name      string `xml:"name,attr" json:"name,omitempty"`
	SourceRef string `xml:"sourceRef,attr" json:"sourceRef"`
	TargetRef string `xml:"targetRef,attr" json:"targetRef"`
}

// FlowElements holds the nodes and flows of a process or sub-process in document order.
type FlowElements struct {
	Nodes []FlowNode
	Flows []SequenceFlow
}

type Process struct {
	Id           string
	Name         string
	IsExecutable bool
	FlowElements
}

type Bounds struct {
	X      float64 `xml:"x,attr" json:"x"`
	Y      float64 `xml:"y,attr" json:"y"`
	Width  float64 `xml:"width,attr" json:"width"`
	Height float64 `xml:"height,attr" json:"height"`
}

type Waypoint struct {
	X float64 `xml:"x,attr" json:"x"`
	Y float64 `xml:"y,attr" json:"y"`
}

type Shape struct {
	Id          string `xml:"id,attr"`
	BpmnElement string `xml:"bpmnElement,attr"`
	Bounds      Bounds `xml:"Bounds"`
}

type Edge struct {
	Id          string     `xml:"id,attr"`
	BpmnElement string     `xml:"bpmnElement,attr"`
	Waypoints   []Waypoint `xml:"waypoint"`
}

type Plane struct {
	Id          string  `xml:"id,attr"`
	BpmnElement string  `xml:"bpmnElement,attr"`
	Shapes      []Shape `xml:"BPMNShape"`
	Edges       []Edge  `xml:"BPMNEdge"`
}

type BPMNDiagram struct {
	Id     string  `xml:"id,attr"`
	Planes []Plane `xml:"BPMNPlane"`
}

type Definitions struct {
	Id              string        `xml:"id,attr"`
	Name            string        `xml:"name,attr"`
	TargetNamespace string        `xml:"targetNamespace,attr"`
	Exporter        string        `xml:"exporter,attr"`
	ExporterVersion string        `xml:"exporterVersion,attr"`
	Processes       []Process     `xml:"process"`
	Diagrams        []BPMNDiagram `xml:"BPMNDiagram"`

	nodes  map[string]FlowNode
	flows  map[string]SequenceFlow
	shapes map[string]Shape
	edges  map[string]Edge
}

func (p *Process) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			p.Id = attr.Value
		case "name":
			p.Name = attr.Value
		case "isExecutable":
			p.IsExecutable = attr.Value == "true"
		}
	}
	return p.FlowElements.decode(d, p.Id)
}

// decode reads flow elements until the end of the enclosing element. Sub-process
// contents are flattened with ParentId pointing to the sub-process.
func (fe *FlowElements) decode(d *xml.Decoder, parentId string) error {
	for {
		token, err := d.Token()
		if err != nil {
			return fmt.Errorf("failed to read flow elements of %s: %w", parentId, err)
		}
		switch t := token.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if err := fe.decodeElement(d, t, parentId); err != nil {
				return err
			}
		}
	}
}

func (fe *FlowElements) decodeElement(d *xml.Decoder, start xml.StartElement, parentId string) error {
	if start.Name.Local == "sequenceFlow" {
		var flow SequenceFlow
		if err := d.DecodeElement(&flow, &start); err != nil {
			return fmt.Errorf("failed to unmarshal sequence flow: %w", err)
		}
		fe.Flows = append(fe.Flows, flow)
		return nil
	}
	elementType, ok := flowNodeTypes[start.Name.Local]
	if !ok {
		return d.Skip()
	}
	node := FlowNode{Type: elementType, ParentId: parentId}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			node.Id = attr.Value
		case "name":
			node.Name = attr.Value
		}
	}
	if elementType.isScope() {
		var children FlowElements
		if err := children.decodeNode(d, &node); err != nil {
			return err
		}
		fe.Nodes = append(fe.Nodes, node)
		fe.Nodes = append(fe.Nodes, children.Nodes...)
		fe.Flows = append(fe.Flows, children.Flows...)
		return nil
	}
	var plain FlowElements
	if err := plain.decodeNode(d, &node); err != nil {
		return err
	}
	fe.Nodes = append(fe.Nodes, node)
	return nil
}

// decodeNode collects incoming and outgoing references of node and any nested
// flow elements.
func (fe *FlowElements) decodeNode(d *xml.Decoder, node *FlowNode) error {
	for {
		token, err := d.Token()
		if err != nil {
			return fmt.Errorf("failed to read element %s: %w", node.Id, err)
		}
		switch t := token.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			switch t.Name.Local {
			case "incoming", "outgoing":
				var ref string
				if err := d.DecodeElement(&ref, &t); err != nil {
					return fmt.Errorf("failed to read references of %s: %w", node.Id, err)
				}
				ref = strings.TrimSpace(ref)
				if t.Name.Local == "incoming" {
					node.Incoming = append(node.Incoming, ref)
				} else {
					node.Outgoing = append(node.Outgoing, ref)
				}
			default:
				if node.Type.isScope() {
					if err := fe.decodeElement(d, t, node.Id); err != nil {
						return err
					}
					continue
				}
				if err := d.Skip(); err != nil {
					return err
				}
			}
		}
	}
}
