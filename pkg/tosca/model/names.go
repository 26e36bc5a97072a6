package model

import (
	"strings"
)

// Well known normative type names.
const (
	RootNodeType         = "tosca.nodes.Root"
	ComputeNodeType      = "tosca.nodes.Compute"
	RootRelationshipType = "tosca.relationships.Root"
	HostedOnType         = "tosca.relationships.HostedOn"
	DependsOnType        = "tosca.relationships.DependsOn"
	ConnectsToType       = "tosca.relationships.ConnectsTo"
	ContainerCapability  = "tosca.capabilities.Container"
)

const (
	StandardInterface      = "Standard"
	StandardInterfaceType  = "tosca.interfaces.node.lifecycle.Standard"
	ConfigureInterface     = "Configure"
	ConfigureInterfaceType = "tosca.interfaces.relationship.Configure"
)

// Operations of the standard lifecycle interfaces.
const (
	OperationCreate    = "create"
	OperationConfigure = "configure"
	OperationStart     = "start"
	OperationStop      = "stop"
	OperationDelete    = "delete"

	OperationPreConfigureSource  = "pre_configure_source"
	OperationPreConfigureTarget  = "pre_configure_target"
	OperationPostConfigureSource = "post_configure_source"
	OperationPostConfigureTarget = "post_configure_target"
	OperationAddTarget           = "add_target"
	OperationAddSource           = "add_source"
	OperationRemoveTarget        = "remove_target"
	OperationRemoveSource        = "remove_source"
)

// InterfaceName maps the normative interface types to their short names.
func InterfaceName(name string) string {
	switch name {
	case StandardInterfaceType:
		return StandardInterface
	case ConfigureInterfaceType:
		return ConfigureInterface
	}
	return name
}

// ShortName returns the last segment of a dotted type name.
func ShortName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
