package diagram

import (
	"github.com/pbinitiative/zenbpm-history/pkg/history"
)

// Marker is the execution overlay of one diagram node.
type Marker struct {
	ElementId string      `json:"elementId"`
	Name      string      `json:"name,omitempty"`
	Type      ElementType `json:"type"`
	// ActivityInstanceIds follow the order of the activity sequence, most recent first
	ActivityInstanceIds []string `json:"activityInstanceIds"`
	Executions          int      `json:"executions"`
	Running             int      `json:"running"`
	Canceled            int      `json:"canceled"`
	Bounds              *Bounds  `json:"bounds,omitempty"`
}

// TakenFlow is a sequence flow the instance went through.
type TakenFlow struct {
	Id        string     `json:"id"`
	SourceRef string     `json:"sourceRef"`
	TargetRef string     `json:"targetRef"`
	Waypoints []Waypoint `json:"waypoints,omitempty"`
}

type Annotation struct {
	Markers    []Marker    `json:"markers"`
	TakenFlows []TakenFlow `json:"takenFlows"`
	// Unmatched lists activity instances whose node is not part of the diagram
	Unmatched         []string `json:"unmatched"`
	ShowRuntimeToggle bool     `json:"showRuntimeToggle"`
}

// Annotate maps the ordered activity sequence onto the diagram. Markers are
// listed in document order of their nodes; nodes without executions get none.
// A sequence flow counts as taken when its source completed at least once and
// its target was reached.
func Annotate(definitions *Definitions, activities []history.ActivityInstance, active bool) Annotation {
	annotation := Annotation{
		Markers:           []Marker{},
		TakenFlows:        []TakenFlow{},
		Unmatched:         []string{},
		ShowRuntimeToggle: active,
	}
	byNode := map[string]*Marker{}
	completed := map[string]bool{}
	for _, activity := range activities {
		node, ok := definitions.FlowNode(activity.ActivityId)
		if !ok {
			annotation.Unmatched = append(annotation.Unmatched, activity.Id)
			continue
		}
		marker, ok := byNode[node.Id]
		if !ok {
			marker = &Marker{ElementId: node.Id, Name: node.Name, Type: node.Type}
			if shape, ok := definitions.Shape(node.Id); ok {
				bounds := shape.Bounds
				marker.Bounds = &bounds
			}
			byNode[node.Id] = marker
		}
		marker.ActivityInstanceIds = append(marker.ActivityInstanceIds, activity.Id)
		marker.Executions++
		switch {
		case activity.IsRunning():
			marker.Running++
		case activity.Canceled:
			marker.Canceled++
		default:
			completed[node.Id] = true
		}
	}
	for _, node := range definitions.FlowNodes() {
		if marker, ok := byNode[node.Id]; ok {
			annotation.Markers = append(annotation.Markers, *marker)
		}
	}
	for _, flow := range definitions.SequenceFlows() {
		if !completed[flow.SourceRef] {
			continue
		}
		if _, reached := byNode[flow.TargetRef]; !reached {
			continue
		}
		taken := TakenFlow{Id: flow.Id, SourceRef: flow.SourceRef, TargetRef: flow.TargetRef}
		if edge, ok := definitions.Edge(flow.Id); ok {
			taken.Waypoints = edge.Waypoints
		}
		annotation.TakenFlows = append(annotation.TakenFlows, taken)
	}
	return annotation
}

// Marker returns the overlay of elementId.
func (a Annotation) Marker(elementId string) (Marker, bool) {
	for _, marker := range a.Markers {
		if marker.ElementId == elementId {
			return marker, true
		}
	}
	return Marker{}, false
}
