// Package operations defines the vocabulary of topology edit
// operations. Every operation is a struct registered under its tag in
// the operation scheme and is decoded by its type field.
package operations

// Operation is a single edit request for a topology.
type Operation interface {
	GetType() string
	SetType(string)

	// GetId returns the id assigned when the operation was executed.
	GetId() string
	SetId(string)

	// GetPreviousOperationId is the id of the last operation the
	// client has observed.
	GetPreviousOperationId() string
	SetPreviousOperationId(string)

	GetAuthor() string
	SetAuthor(string)

	// CommitMessage describes the change for the commit log.
	// It may be empty.
	CommitMessage() string
}

// SessionOperation is handled by the edition session itself
// instead of a processor.
type SessionOperation interface {
	Operation
	sessionLevel()
}

type OperationBase struct {
	Type                string `json:"type"`
	Id                  string `json:"id,omitempty"`
	PreviousOperationId string `json:"previousOperationId,omitempty"`
	Author              string `json:"author,omitempty"`
}

func (o *OperationBase) GetType() string {
	return o.Type
}

func (o *OperationBase) SetType(t string) {
	o.Type = t
}

func (o *OperationBase) GetId() string {
	return o.Id
}

func (o *OperationBase) SetId(id string) {
	o.Id = id
}

func (o *OperationBase) GetPreviousOperationId() string {
	return o.PreviousOperationId
}

func (o *OperationBase) SetPreviousOperationId(id string) {
	o.PreviousOperationId = id
}

func (o *OperationBase) GetAuthor() string {
	return o.Author
}

func (o *OperationBase) SetAuthor(a string) {
	o.Author = a
}

func (o *OperationBase) CommitMessage() string {
	return ""
}

type sessionBase struct {
	OperationBase `json:",inline"`
}

func (o *sessionBase) sessionLevel() {}

////////////////////////////////////////////////////////////////////////////////
// common payload elements

type NodeRef struct {
	NodeName string `json:"nodeName"`
}

type PropertyRef struct {
	NodeRef      `json:",inline"`
	PropertyName string `json:"propertyName"`
}

type CapabilityPropertyRef struct {
	PropertyRef    `json:",inline"`
	CapabilityName string `json:"capabilityName"`
}
