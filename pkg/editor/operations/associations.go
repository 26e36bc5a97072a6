package operations

const (
	TypeSetNodePropertyAsInput         = "set-node-property-as-input"
	TypeUnsetNodePropertyAsInput       = "unset-node-property-as-input"
	TypeSetCapabilityPropertyAsInput   = "set-capability-property-as-input"
	TypeUnsetCapabilityPropertyAsInput = "unset-capability-property-as-input"

	TypeSetNodePropertyAsSecret         = "set-node-property-as-secret"
	TypeUnsetNodePropertyAsSecret       = "unset-node-property-as-secret"
	TypeSetCapabilityPropertyAsSecret   = "set-capability-property-as-secret"
	TypeUnsetCapabilityPropertyAsSecret = "unset-capability-property-as-secret"

	TypeSetNodeAttributeAsOutput        = "set-node-attribute-as-output"
	TypeUnsetNodeAttributeAsOutput      = "unset-node-attribute-as-output"
	TypeSetNodePropertyAsOutput         = "set-node-property-as-output"
	TypeUnsetNodePropertyAsOutput       = "unset-node-property-as-output"
	TypeSetCapabilityPropertyAsOutput   = "set-capability-property-as-output"
	TypeUnsetCapabilityPropertyAsOutput = "unset-capability-property-as-output"
	TypeSetNodeArtifactAsInput          = "set-node-artifact-as-input"
	TypeUnsetNodeArtifactAsInput        = "unset-node-artifact-as-input"
)

func init() {
	MustRegister[SetNodePropertyAsInput](DefaultScheme, TypeSetNodePropertyAsInput)
	MustRegister[UnsetNodePropertyAsInput](DefaultScheme, TypeUnsetNodePropertyAsInput)
	MustRegister[SetCapabilityPropertyAsInput](DefaultScheme, TypeSetCapabilityPropertyAsInput)
	MustRegister[UnsetCapabilityPropertyAsInput](DefaultScheme, TypeUnsetCapabilityPropertyAsInput)

	MustRegister[SetNodePropertyAsSecret](DefaultScheme, TypeSetNodePropertyAsSecret)
	MustRegister[UnsetNodePropertyAsSecret](DefaultScheme, TypeUnsetNodePropertyAsSecret)
	MustRegister[SetCapabilityPropertyAsSecret](DefaultScheme, TypeSetCapabilityPropertyAsSecret)
	MustRegister[UnsetCapabilityPropertyAsSecret](DefaultScheme, TypeUnsetCapabilityPropertyAsSecret)

	MustRegister[SetNodeAttributeAsOutput](DefaultScheme, TypeSetNodeAttributeAsOutput)
	MustRegister[UnsetNodeAttributeAsOutput](DefaultScheme, TypeUnsetNodeAttributeAsOutput)
	MustRegister[SetNodePropertyAsOutput](DefaultScheme, TypeSetNodePropertyAsOutput)
	MustRegister[UnsetNodePropertyAsOutput](DefaultScheme, TypeUnsetNodePropertyAsOutput)
	MustRegister[SetCapabilityPropertyAsOutput](DefaultScheme, TypeSetCapabilityPropertyAsOutput)
	MustRegister[UnsetCapabilityPropertyAsOutput](DefaultScheme, TypeUnsetCapabilityPropertyAsOutput)

	MustRegister[SetNodeArtifactAsInput](DefaultScheme, TypeSetNodeArtifactAsInput)
	MustRegister[UnsetNodeArtifactAsInput](DefaultScheme, TypeUnsetNodeArtifactAsInput)
}

// SetNodePropertyAsInput binds a property to an input with get_input.
type SetNodePropertyAsInput struct {
	OperationBase `json:",inline"`
	PropertyRef   `json:",inline"`
	InputName     string `json:"inputName"`
}

// UnsetNodePropertyAsInput restores the default of a property
// bound to an input.
type UnsetNodePropertyAsInput struct {
	OperationBase `json:",inline"`
	PropertyRef   `json:",inline"`
}

type SetCapabilityPropertyAsInput struct {
	OperationBase         `json:",inline"`
	CapabilityPropertyRef `json:",inline"`
	InputName             string `json:"inputName"`
}

type UnsetCapabilityPropertyAsInput struct {
	OperationBase         `json:",inline"`
	CapabilityPropertyRef `json:",inline"`
}

// SetNodePropertyAsSecret binds a property to a secret path
// with get_secret.
type SetNodePropertyAsSecret struct {
	OperationBase `json:",inline"`
	PropertyRef   `json:",inline"`
	SecretPath    string `json:"secretPath"`
}

type UnsetNodePropertyAsSecret struct {
	OperationBase `json:",inline"`
	PropertyRef   `json:",inline"`
}

type SetCapabilityPropertyAsSecret struct {
	OperationBase         `json:",inline"`
	CapabilityPropertyRef `json:",inline"`
	SecretPath            string `json:"secretPath"`
}

type UnsetCapabilityPropertyAsSecret struct {
	OperationBase         `json:",inline"`
	CapabilityPropertyRef `json:",inline"`
}

type SetNodeAttributeAsOutput struct {
	OperationBase `json:",inline"`
	NodeRef       `json:",inline"`
	AttributeName string `json:"attributeName"`
}

type UnsetNodeAttributeAsOutput struct {
	OperationBase `json:",inline"`
	NodeRef       `json:",inline"`
	AttributeName string `json:"attributeName"`
}

type SetNodePropertyAsOutput struct {
	OperationBase `json:",inline"`
	PropertyRef   `json:",inline"`
}

type UnsetNodePropertyAsOutput struct {
	OperationBase `json:",inline"`
	PropertyRef   `json:",inline"`
}

type SetCapabilityPropertyAsOutput struct {
	OperationBase         `json:",inline"`
	CapabilityPropertyRef `json:",inline"`
}

type UnsetCapabilityPropertyAsOutput struct {
	OperationBase         `json:",inline"`
	CapabilityPropertyRef `json:",inline"`
}

// SetNodeArtifactAsInput binds a node artifact to an input artifact.
// With NewInput the input artifact is created from the node artifact.
type SetNodeArtifactAsInput struct {
	OperationBase `json:",inline"`
	NodeRef       `json:",inline"`
	ArtifactName  string `json:"artifactName"`
	InputName     string `json:"inputName"`
	NewInput      bool   `json:"newInput,omitempty"`
}

type UnsetNodeArtifactAsInput struct {
	OperationBase `json:",inline"`
	NodeRef       `json:",inline"`
	ArtifactName  string `json:"artifactName"`
	InputName     string `json:"inputName"`
}
