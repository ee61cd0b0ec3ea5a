package otel

const (
	Prefix                      = "history-"
	AttributeProcessInstanceId  = Prefix + "instance-id"
	AttributeProcessDefinition  = Prefix + "definition-id"
	AttributeActivityCount      = Prefix + "activity-count"
	AttributeVariableCount      = Prefix + "variable-count"
	AttributeDecisionCount      = Prefix + "decision-count"
	AttributeEnginePath         = Prefix + "engine-path"
	AttributeEngineStatus       = Prefix + "engine-status"
	AttributeExtensionId        = Prefix + "extension-id"
	AttributeExtensionPoint     = Prefix + "extension-point"
	AttributeAggregationOutcome = Prefix + "outcome"
)
