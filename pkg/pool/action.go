package pool

import (
	"fmt"
	"time"
)

type Action interface {
	Reconcile(Pool, MessageContext, ObjectKey) Status
	Command(Pool, MessageContext, Command) Status
}

type DefaultAction struct{}

func (a DefaultAction) Reconcile(_ Pool, _ MessageContext, key ObjectKey) Status {
	return StatusFailed(fmt.Errorf("unexpected reconcile request for %q", key))
}

func (a DefaultAction) Command(_ Pool, _ MessageContext, c Command) Status {
	return StatusFailed(fmt.Errorf("unexpected command request for %q", c))
}

type Command string

func (c Command) String() string {
	return string(c)
}

type ObjectType string

func (o ObjectType) String() string {
	return string(o)
}

const tick = 30 * time.Second
const tickCmd = "TICK"

// ActionTargetSpec is a Command or an ObjectType.
type ActionTargetSpec interface {
	String() string
}

type actions []Action

func (l actions) add(a Action) actions {
	for _, r := range l {
		if r == a {
			return l
		}
	}
	return append(l, a)
}

type actionMapping struct {
	values map[ActionTargetSpec]actions
}

func newActionMapping() *actionMapping {
	return &actionMapping{
		values: map[ActionTargetSpec]actions{},
	}
}

func (am *actionMapping) getAction(key ActionTargetSpec) actions {
	return am.values[key]
}

func (am *actionMapping) addAction(key ActionTargetSpec, a Action) {
	am.values[key] = am.values[key].add(a)
}
