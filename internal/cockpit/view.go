package cockpit

import (
	"strconv"

	"github.com/pbinitiative/zenbpm-history/pkg/diagram"
	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/navigation"
	"github.com/pbinitiative/zenbpm-history/pkg/ptr"
)

const nullPlaceholder = "null"

// InstanceView is everything the instance route shows, in display order.
type InstanceView struct {
	Version     string                  `json:"version"`
	Instance    history.ProcessInstance `json:"instance"`
	Info        []InfoItem              `json:"info"`
	DiagramXml  string                  `json:"-"`
	Annotation  *diagram.Annotation     `json:"annotation,omitempty"`
	DiagramErr  string                  `json:"diagramError,omitempty"`
	RuntimeHref string                  `json:"runtimeHref,omitempty"`
	AuditLog    []AuditEntry            `json:"auditLog"`
	Variables   []VariableEntry         `json:"variables"`
}

type InfoItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Href  string `json:"href,omitempty"`
}

type AuditEntry struct {
	ActivityInstanceId string        `json:"activityInstanceId"`
	ActivityId         string        `json:"activityId"`
	Name               string        `json:"name"`
	Type               string        `json:"type"`
	Assignee           string        `json:"assignee,omitempty"`
	StartTime          *history.Time `json:"startTime"`
	EndTime            *history.Time `json:"endTime"`
	DurationInMillis   *int64        `json:"durationInMillis"`
	Running            bool          `json:"running"`
	Canceled           bool          `json:"canceled"`
	DecisionInstanceId string        `json:"decisionInstanceId,omitempty"`
}

type VariableEntry struct {
	Id         string        `json:"id"`
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Value      string        `json:"value"`
	Scope      string        `json:"scope"`
	State      string        `json:"state"`
	CreateTime *history.Time `json:"createTime"`
}

// NewInstanceView joins an aggregated history into the page model. A diagram
// that does not parse leaves the annotation empty; the rest of the page is
// still shown.
func NewInstanceView(h *history.InstanceHistory) InstanceView {
	instance := h.Instance
	view := InstanceView{
		Version:    h.Version,
		Instance:   instance,
		Info:       instanceInfo(instance),
		DiagramXml: h.Diagram.Bpmn20Xml,
		AuditLog:   make([]AuditEntry, 0, len(h.Activities)),
		Variables:  make([]VariableEntry, 0, len(h.Variables)),
	}
	if definitions, err := diagram.Parse(h.Diagram.Bpmn20Xml); err != nil {
		view.DiagramErr = err.Error()
	} else {
		annotation := diagram.Annotate(definitions, h.Activities, instance.IsActive())
		view.Annotation = &annotation
	}
	if instance.IsActive() {
		button := navigation.NewToggleButton(navigation.ViewHistory)
		view.RuntimeHref, _ = button.Target(navigation.HistoryLocation(instance.Id))
	}
	for _, activity := range h.Activities {
		view.AuditLog = append(view.AuditLog, AuditEntry{
			ActivityInstanceId: activity.Id,
			ActivityId:         activity.ActivityId,
			Name:               activity.DisplayName(),
			Type:               activity.ActivityType,
			Assignee:           ptr.Deref(activity.Assignee, ""),
			StartTime:          activity.StartTime,
			EndTime:            activity.EndTime,
			DurationInMillis:   activity.DurationInMillis,
			Running:            activity.IsRunning(),
			Canceled:           activity.Canceled,
			DecisionInstanceId: h.DecisionByActivity[activity.Id],
		})
	}
	for _, variable := range h.Variables {
		view.Variables = append(view.Variables, VariableEntry{
			Id:         variable.Id,
			Name:       variable.Name,
			Type:       variable.Type,
			Value:      variable.DisplayValue(),
			Scope:      variableScope(instance, h.ActivityById, variable),
			State:      variable.State,
			CreateTime: variable.CreateTime,
		})
	}
	return view
}

func instanceInfo(instance history.ProcessInstance) []InfoItem {
	superInstance := InfoItem{Label: "Super Process instance ID:", Value: nullPlaceholder}
	if instance.SuperProcessInstanceId != nil && *instance.SuperProcessInstanceId != "" {
		superInstance.Value = *instance.SuperProcessInstanceId
		superInstance.Href = navigation.HistoryLocation(superInstance.Value)
	}
	return []InfoItem{
		{Label: "Instance ID:", Value: instance.Id},
		{Label: "Business Key:", Value: ptr.StringOr(instance.BusinessKey, nullPlaceholder)},
		{Label: "Definition Version:", Value: strconv.Itoa(instance.ProcessDefinitionVersion)},
		{Label: "Definition ID:", Value: instance.ProcessDefinitionId},
		{Label: "Definition Key:", Value: instance.ProcessDefinitionKey},
		{Label: "Definition Name:", Value: instance.ProcessDefinitionName},
		{Label: "Tenant ID:", Value: ptr.StringOr(instance.TenantId, nullPlaceholder)},
		superInstance,
		{Label: "State", Value: string(instance.State)},
	}
}

// variableScope names the activity a variable was set in. Variables of the
// instance scope carry the instance id as activity instance id.
func variableScope(instance history.ProcessInstance, activities map[string]history.ActivityInstance, variable history.VariableInstance) string {
	scopeId := ptr.Deref(variable.ActivityInstanceId, "")
	if scopeId == "" || scopeId == instance.Id {
		if instance.ProcessDefinitionName != "" {
			return instance.ProcessDefinitionName
		}
		return instance.ProcessDefinitionKey
	}
	if activity, ok := activities[scopeId]; ok {
		return activity.DisplayName()
	}
	return scopeId
}
