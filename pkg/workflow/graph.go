package workflow

import (
	"slices"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
)

type edge struct {
	from, to string
}

func getStep(w *model.Workflow, name string) (*model.Step, error) {
	s := w.Steps.Get(name)
	if s == nil {
		return nil, errkind.ErrNotFound("step", w.Name+"."+name)
	}
	return s, nil
}

// reachable reports whether the step to can be reached from
// the step from following the on_success edges.
func reachable(w *model.Workflow, from, to string) bool {
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if s := w.Steps.Get(cur); s != nil {
			stack = append(stack, s.OnSuccess...)
		}
	}
	return false
}

// link adds an on_success edge. Existing edges are kept, edges
// closing a cycle are rejected.
func link(w *model.Workflow, from, to string) error {
	f, err := getStep(w, from)
	if err != nil {
		return err
	}
	t, err := getStep(w, to)
	if err != nil {
		return err
	}
	if slices.Contains(f.OnSuccess, to) {
		return nil
	}
	if from == to || reachable(w, to, from) {
		return errkind.ErrCyclicReference("linking step %q to %q in workflow %q creates a cycle", from, to, w.Name)
	}
	f.OnSuccess = append(f.OnSuccess, to)
	t.Precedings = append(t.Precedings, from)
	return nil
}

func unlink(w *model.Workflow, from, to string) bool {
	f := w.Steps.Get(from)
	if f == nil || !slices.Contains(f.OnSuccess, to) {
		return false
	}
	f.OnSuccess = slices.DeleteFunc(f.OnSuccess, func(s string) bool { return s == to })
	if t := w.Steps.Get(to); t != nil {
		t.Precedings = slices.DeleteFunc(t.Precedings, func(s string) bool { return s == from })
	}
	return true
}

// removeStep deletes a step. Its predecessors are linked
// to its successors.
func removeStep(w *model.Workflow, name string) {
	s := w.Steps.Get(name)
	if s == nil {
		return
	}
	preds := slices.Clone(s.Precedings)
	succs := slices.Clone(s.OnSuccess)
	for _, p := range preds {
		unlink(w, p, name)
	}
	for _, n := range succs {
		unlink(w, name, n)
	}
	for _, st := range w.Steps.List() {
		st.OnFailure = slices.DeleteFunc(st.OnFailure, func(f string) bool { return f == name })
	}
	w.Steps.Delete(name)
	for _, p := range preds {
		for _, n := range succs {
			if err := link(w, p, n); err != nil {
				log.Debug("cannot bridge {{from}} to {{to}}: {{error}}", "from", p, "to", n, "error", err)
			}
		}
	}
}

// renameStep changes the name of a step and all references to it.
func renameStep(w *model.Workflow, old, new string) {
	rename := func(list []string) {
		for i, n := range list {
			if n == old {
				list[i] = new
			}
		}
	}
	for _, st := range w.Steps.List() {
		rename(st.OnSuccess)
		rename(st.OnFailure)
		rename(st.Precedings)
	}
	if s := w.Steps.Get(old); s != nil {
		s.Name = new
		w.Steps.Rename(old, new)
	}
}

func uniqueStepName(w *model.Workflow, name string) string {
	return topology.UniqueName(name, w.Steps.Has)
}
