package engine

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/seqscore/internal/ir"
)

// Mode selects how a replay reacts to violations.
type Mode string

const (
	// ModeStrict halts replay of a sequence at its first violation.
	ModeStrict Mode = "strict"

	// ModePermissive records every violation; offending instances are
	// poisoned and later references report PoisonedUse.
	ModePermissive Mode = "permissive"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStrict, ModePermissive:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be strict or permissive", s)
	}
}

// noInstance marks a resolved argument that is not bound to an instance.
const noInstance = -1

// Resolved is an argument binding after variable lookup.
type Resolved struct {
	Binding  ir.Binding
	Instance int  // arena id, noInstance for literals and unbound variables
	Unbound  bool // variable reference that names nothing
}

// LeakCandidate records a destination variable re-bound while it still
// named a Live instance.
type LeakCandidate struct {
	Var      string  `json:"var"`
	Instance int     `json:"instance"`
	Site     ir.Site `json:"site"`
}

// Outcome is the effect of applying one call.
type Outcome struct {
	Shapes        []string // ownership-role shape of each argument
	Transitions   []ir.Transition
	Violations    []Violation
	Created       int   // new instance id, noInstance if none
	Produced      []int // instances written through produces parameters
	LeakCandidate *LeakCandidate
}

// Tracker maintains the lifecycle state of every handle instance created
// during a single sequence replay.
//
// Instances are kept in an arena indexed by synthetic id. Aliases refer to
// their owner by id, so alias graphs never hold pointers to each other.
//
// A Tracker is owned by one replay and is not safe for concurrent use.
type Tracker struct {
	model   *ir.InterfaceModel
	arena   []*ir.HandleInstance
	vars    map[string]int
	poison  map[int]ViolationKind
	visited map[ir.Transition]bool
	leaks   []LeakCandidate
}

// NewTracker creates an empty tracker for one replay.
func NewTracker(model *ir.InterfaceModel) *Tracker {
	return &Tracker{
		model:   model,
		vars:    make(map[string]int),
		poison:  make(map[int]ViolationKind),
		visited: make(map[ir.Transition]bool),
	}
}

// Resolve looks up a binding. Literals resolve to no instance; variables
// resolve to the instance they currently name.
func (t *Tracker) Resolve(b ir.Binding) Resolved {
	if b.Kind != ir.BindVar {
		return Resolved{Binding: b, Instance: noInstance}
	}
	id, ok := t.vars[b.Value]
	if !ok {
		return Resolved{Binding: b, Instance: noInstance, Unbound: true}
	}
	return Resolved{Binding: b, Instance: id}
}

// Apply replays one call of fn with resolved arguments, binding the result
// (if any) to dest.
//
// Handle arguments are checked first. Effects (borrow round trips, releases,
// ownership transfers) are then applied for the arguments that passed, and
// finally the return value and every "&name" passed to a produces parameter
// create new instances.
func (t *Tracker) Apply(fn *ir.FunctionSpec, args []Resolved, dest string, site ir.Site) Outcome {
	out := Outcome{Created: noInstance}
	ok := make([]bool, len(args))

	for i, arg := range args {
		if i >= len(fn.Params) || !fn.Params[i].Role.IsHandle() {
			out.Shapes = append(out.Shapes, string(ir.RoleValue))
			continue
		}
		p := fn.Params[i]
		if p.Role == ir.RoleProduces {
			out.Shapes = append(out.Shapes, string(p.Role)+":"+p.Type)
			continue
		}

		switch {
		case arg.Unbound:
			out.Shapes = append(out.Shapes, string(p.Role)+":unbound")
			out.Violations = append(out.Violations, Violation{
				Kind:     UnboundHandle,
				Function: fn.Name,
				Var:      arg.Binding.Value,
				Instance: noInstance,
				Message:  fmt.Sprintf("argument %d (%s) names no handle", i, p.Name),
			})
		case arg.Instance == noInstance:
			out.Shapes = append(out.Shapes, string(p.Role)+":literal")
		default:
			inst := t.arena[arg.Instance]
			out.Shapes = append(out.Shapes, string(p.Role)+":"+inst.Type)
			if v, bad := t.check(inst, p, i); bad {
				v.Function = fn.Name
				v.Var = arg.Binding.Value
				out.Violations = append(out.Violations, v)
				t.poisonInstance(inst, v.Kind)
				continue
			}
			ok[i] = true
		}
	}

	for i, arg := range args {
		if !ok[i] {
			continue
		}
		inst := t.arena[arg.Instance]
		switch fn.Params[i].Role {
		case ir.RoleBorrows:
			out.Transitions = append(out.Transitions,
				t.record(inst.Type, inst.State, ir.StateBorrowed),
				t.record(inst.Type, ir.StateBorrowed, inst.State))
		case ir.RoleConsumes:
			if inst.State == ir.StateReleased {
				// same instance passed twice to one releasing call
				out.Violations = append(out.Violations, Violation{
					Kind:     DoubleRelease,
					Function: fn.Name,
					Var:      arg.Binding.Value,
					Instance: inst.ID,
					Message:  fmt.Sprintf("instance %d released twice by one call", inst.ID),
				})
				t.poisonInstance(inst, DoubleRelease)
				continue
			}
			out.Transitions = append(out.Transitions, t.release(inst)...)
		case ir.RoleAliases:
			into := fn.Params[i].Into
			if into >= len(args) || args[into].Instance == noInstance || inst.State != ir.StateLive {
				continue
			}
			owner := t.arena[args[into].Instance]
			if owner.ID == inst.ID || !owner.State.IsLive() {
				continue
			}
			out.Transitions = append(out.Transitions, t.record(inst.Type, ir.StateLive, ir.StateLiveAlias))
			inst.State = ir.StateLiveAlias
			inst.Owner = owner.ID
			owner.Aliases = append(owner.Aliases, inst.ID)
		}
	}

	if fn.Returns.Kind != ir.ReturnNone {
		inst := t.create(fn, args, site)
		out.Created = inst.ID
		if inst.State != ir.StatePoisoned {
			out.Transitions = append(out.Transitions, t.record(inst.Type, ir.StateUnborn, inst.State))
		}
	}

	for i, arg := range args {
		if i >= len(fn.Params) || fn.Params[i].Role != ir.RoleProduces || arg.Binding.Kind != ir.BindOut {
			continue
		}
		inst := t.newInstance(fn.Params[i].Type, site)
		inst.State = ir.StateLive
		out.Produced = append(out.Produced, inst.ID)
		out.Transitions = append(out.Transitions, t.record(inst.Type, ir.StateUnborn, ir.StateLive))
		t.bind(arg.Binding.Value, inst.ID, site, &out)
	}

	for i := range out.Violations {
		out.Violations[i].Call = site.Index
		out.Violations[i].Line = site.Line
	}

	if dest != "" {
		t.bind(dest, out.Created, site, &out)
	}

	return out
}

// bind points name at id, or unbinds it when id is noInstance. Re-binding a
// name that still holds a Live instance records a leak candidate.
func (t *Tracker) bind(name string, id int, site ir.Site, out *Outcome) {
	if prev, bound := t.vars[name]; bound && t.arena[prev].State == ir.StateLive && prev != id {
		lc := LeakCandidate{Var: name, Instance: prev, Site: site}
		t.leaks = append(t.leaks, lc)
		out.LeakCandidate = &lc
	}
	if id != noInstance {
		t.vars[name] = id
	} else {
		delete(t.vars, name)
	}
}

// check validates a handle argument against its parameter. The returned
// violation has Kind, Instance and Message set.
func (t *Tracker) check(inst *ir.HandleInstance, p ir.Param, idx int) (Violation, bool) {
	v := Violation{Instance: inst.ID}

	if inst.State == ir.StatePoisoned {
		v.Kind = PoisonedUse
		v.Message = fmt.Sprintf("argument %d (%s) refers to instance %d poisoned by %s", idx, p.Name, inst.ID, t.poison[inst.ID])
		return v, true
	}

	if inst.Type != p.Type {
		v.Kind = TypeMismatch
		v.Message = fmt.Sprintf("argument %d (%s) expects %s, got %s", idx, p.Name, p.Type, inst.Type)
		return v, true
	}

	switch inst.State {
	case ir.StateReleased:
		if p.Role == ir.RoleConsumes {
			v.Kind = DoubleRelease
			v.Message = fmt.Sprintf("instance %d created at %s already released", inst.ID, inst.Site)
		} else {
			v.Kind = UseAfterRelease
			v.Message = fmt.Sprintf("instance %d created at %s used after release", inst.ID, inst.Site)
		}
		return v, true
	case ir.StateRevoked:
		v.Kind = DanglingAliasUse
		v.Message = fmt.Sprintf("alias %d of instance %d used after its owner was released", inst.ID, inst.Owner)
		return v, true
	case ir.StateLiveAlias:
		if p.Role == ir.RoleConsumes && !t.model.HandleTypes[inst.Type].AliasRelease {
			v.Kind = AliasRelease
			v.Message = fmt.Sprintf("alias %d of %s released; only owners may be released", inst.ID, inst.Type)
			return v, true
		}
	}

	return v, false
}

// create allocates the instance produced by fn's return value.
func (t *Tracker) create(fn *ir.FunctionSpec, args []Resolved, site ir.Site) *ir.HandleInstance {
	inst := t.newInstance(fn.Returns.Type, site)

	switch fn.Returns.Kind {
	case ir.ReturnOwned:
		inst.State = ir.StateLive
	case ir.ReturnBorrowed:
		inst.State = ir.StateLiveAlias
	case ir.ReturnAlias:
		inst.State = ir.StateLiveAlias
		of := fn.Returns.Of
		if of >= len(args) || args[of].Instance == noInstance {
			break
		}
		owner := t.arena[args[of].Instance]
		if !owner.State.IsLive() {
			kind, poisoned := t.poison[owner.ID]
			if !poisoned {
				kind = DanglingAliasUse
			}
			inst.State = ir.StatePoisoned
			t.poison[inst.ID] = kind
			break
		}
		inst.Owner = owner.ID
		owner.Aliases = append(owner.Aliases, inst.ID)
	}

	return inst
}

func (t *Tracker) newInstance(typ string, site ir.Site) *ir.HandleInstance {
	inst := &ir.HandleInstance{
		ID:      len(t.arena),
		Type:    typ,
		Site:    site,
		Owner:   ir.NoOwner,
		Aliases: []int{},
	}
	t.arena = append(t.arena, inst)
	return inst
}

// release moves inst to Released and revokes every alias rooted at it.
func (t *Tracker) release(inst *ir.HandleInstance) []ir.Transition {
	trs := []ir.Transition{t.record(inst.Type, inst.State, ir.StateReleased)}
	inst.State = ir.StateReleased

	if inst.Owner != ir.NoOwner {
		owner := t.arena[inst.Owner]
		owner.Aliases = slices.DeleteFunc(owner.Aliases, func(id int) bool { return id == inst.ID })
	}

	return append(trs, t.revokeAliases(inst)...)
}

// revokeAliases revokes the live aliases of inst, transitively.
func (t *Tracker) revokeAliases(inst *ir.HandleInstance) []ir.Transition {
	var trs []ir.Transition
	for _, id := range inst.Aliases {
		alias := t.arena[id]
		if alias.State != ir.StateLiveAlias {
			continue
		}
		trs = append(trs, t.record(alias.Type, ir.StateLiveAlias, ir.StateRevoked))
		alias.State = ir.StateRevoked
		trs = append(trs, t.revokeAliases(alias)...)
	}
	inst.Aliases = inst.Aliases[:0]
	return trs
}

func (t *Tracker) poisonInstance(inst *ir.HandleInstance, kind ViolationKind) {
	if inst.State == ir.StatePoisoned {
		return
	}
	inst.State = ir.StatePoisoned
	t.poison[inst.ID] = kind
}

func (t *Tracker) record(typ string, from, to ir.State) ir.Transition {
	tr := ir.Transition{Type: typ, From: from, To: to}
	t.visited[tr] = true
	return tr
}

// Unreleased reports one UnreleasedResource violation per instance of a
// release-requiring type that is still Live, in creation order.
func (t *Tracker) Unreleased() []Violation {
	names := make(map[int]string, len(t.vars))
	for name, id := range t.vars {
		names[id] = name
	}

	var out []Violation
	for _, inst := range t.arena {
		if inst.State != ir.StateLive || !t.model.HandleTypes[inst.Type].Release {
			continue
		}
		out = append(out, Violation{
			Kind:     UnreleasedResource,
			Call:     EndOfSequence,
			Var:      names[inst.ID],
			Instance: inst.ID,
			Message:  fmt.Sprintf("%s instance %d created at %s is never released", inst.Type, inst.ID, inst.Site),
		})
	}
	return out
}

// Transitions returns the distinct transitions exercised so far, sorted.
func (t *Tracker) Transitions() []ir.Transition {
	out := make([]ir.Transition, 0, len(t.visited))
	for tr := range t.visited {
		out = append(out, tr)
	}
	slices.SortFunc(out, func(a, b ir.Transition) int {
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	return out
}

// FinalStates maps every bound variable to its instance's current state.
func (t *Tracker) FinalStates() map[string]ir.State {
	out := make(map[string]ir.State, len(t.vars))
	for name, id := range t.vars {
		out[name] = t.arena[id].State
	}
	return out
}

// Instances returns a snapshot of the arena.
func (t *Tracker) Instances() []ir.HandleInstance {
	out := make([]ir.HandleInstance, len(t.arena))
	for i, inst := range t.arena {
		out[i] = *inst
		out[i].Aliases = slices.Clone(inst.Aliases)
	}
	return out
}

// LeakCandidates returns the recorded leak candidates in call order.
func (t *Tracker) LeakCandidates() []LeakCandidate {
	return slices.Clone(t.leaks)
}
