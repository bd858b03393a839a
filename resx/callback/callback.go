// Package callback implements descriptor-based dispatch for user-configurable
// hooks. In resx the file producer's RPC hook resolves through a Descriptor;
// the content combiner, the content reducer, and the access-matrix callback
// entries are plain Go function values and do not go through this package.
package callback

import "fmt"

// Func is the uniform shape every resolved callback is invoked through.
type Func func(inputs []interface{}) (interface{}, error)

// Registry resolves a (module, function) pair to a Func. The file producer
// resolves its RPC hook against the Registry handed to its Settings.SetRPC.
type Registry interface {
	Resolve(module, function string) (Func, error)
}

// PlacementKind selects how a Descriptor's input_placement behaves.
type PlacementKind int

const (
	// PlacementAppend is the implicit placement of a prebound descriptor that
	// declares no input_placement: inputs are appended after the bound args.
	PlacementAppend PlacementKind = iota
	// PlacementIndex splices all inputs contiguously at a single index.
	PlacementIndex
	// PlacementList zips one input per named position in the bound args.
	PlacementList
	// PlacementNone discards inputs entirely (legal only when the call is
	// made with Optional requirement).
	PlacementNone
)

// Placement describes where call() splices inputs into the bound args.
type Placement struct {
	Kind  PlacementKind
	Index int
	List  []int
}

// Requirement controls whether a PlacementNone descriptor may be invoked
// without its caller's inputs.
type Requirement int

const (
	Required Requirement = iota
	Optional
)

// Descriptor is the tagged union of the four callback shapes the spec
// describes: a function value with known arity; (module, function, arity);
// (module, function, prebound_args); and (module, function, prebound_args,
// input_placement).
type Descriptor struct {
	// Fn and Arity together model "a function value with known arity".
	Fn    Func
	Arity int

	// Module and Function together model the (module, function, ...) forms;
	// they are resolved against a Registry at call time.
	Module   string
	Function string

	// HasArity selects the explicit-arity form (rule 1), regardless of
	// whether it is expressed via Fn or via Module/Function.
	HasArity bool

	// Bound holds the prebound argument list for the (module, function,
	// prebound_args[, input_placement]) forms.
	Bound    []interface{}
	HasBound bool

	// Placement, when HasPlacement is set, overrides the default append
	// behaviour of a prebound descriptor.
	Placement    Placement
	HasPlacement bool
}

// Explicit builds a Descriptor around a function value of known arity.
func Explicit(fn Func, arity int) Descriptor {
	return Descriptor{Fn: fn, Arity: arity, HasArity: true}
}

// Named builds a Descriptor around a registry-resolved (module, function,
// arity) triple.
func Named(module, function string, arity int) Descriptor {
	return Descriptor{Module: module, Function: function, Arity: arity, HasArity: true}
}

// BoundArgs builds a Descriptor around a registry-resolved function with
// prebound arguments and the default (append) placement.
func BoundArgs(module, function string, bound ...interface{}) Descriptor {
	return Descriptor{Module: module, Function: function, Bound: bound, HasBound: true}
}

// Placed builds a Descriptor around a registry-resolved function with
// prebound arguments and an explicit input_placement.
func Placed(module, function string, bound []interface{}, placement Placement) Descriptor {
	return Descriptor{
		Module: module, Function: function,
		Bound: bound, HasBound: true,
		Placement: placement, HasPlacement: true,
	}
}

// Call resolves d against reg (ignored when d wraps a direct Fn value),
// builds the argument list per the dispatch rule, and invokes it.
func Call(reg Registry, d Descriptor, inputs []interface{}, req Requirement) (interface{}, error) {
	fn, err := d.resolve(reg)
	if err != nil {
		return nil, err
	}
	args, err := d.buildArgs(inputs, req)
	if err != nil {
		return nil, err
	}
	return fn(args)
}

func (d Descriptor) resolve(reg Registry) (Func, error) {
	if d.Fn != nil {
		return d.Fn, nil
	}
	if reg == nil {
		return nil, fmt.Errorf("callback: descriptor for %s/%s requires a registry", d.Module, d.Function)
	}
	return reg.Resolve(d.Module, d.Function)
}

func (d Descriptor) buildArgs(inputs []interface{}, req Requirement) ([]interface{}, error) {
	if d.HasArity {
		if len(inputs) != d.Arity {
			return nil, fmt.Errorf("callback: expected %d input(s), got %d", d.Arity, len(inputs))
		}
		return inputs, nil
	}

	if !d.HasPlacement {
		// Rule 2: prebound args with no placement appends inputs.
		out := make([]interface{}, 0, len(d.Bound)+len(inputs))
		out = append(out, d.Bound...)
		out = append(out, inputs...)
		return out, nil
	}

	switch d.Placement.Kind {
	case PlacementIndex:
		// Rule 3: splice inputs contiguously at the given index.
		idx := d.Placement.Index
		if idx < 0 || idx > len(d.Bound) {
			return nil, fmt.Errorf("callback: placement index %d out of range [0,%d]", idx, len(d.Bound))
		}
		out := make([]interface{}, 0, len(d.Bound)+len(inputs))
		out = append(out, d.Bound[:idx]...)
		out = append(out, inputs...)
		out = append(out, d.Bound[idx:]...)
		return out, nil

	case PlacementList:
		// Rule 4: zip (position, input) pairs, interleaving remaining bound args.
		if len(d.Placement.List) != len(inputs) {
			return nil, fmt.Errorf("callback: placement list has %d position(s), got %d input(s)", len(d.Placement.List), len(inputs))
		}
		total := len(d.Bound) + len(inputs)
		out := make([]interface{}, total)
		used := make([]bool, total)
		for i, pos := range d.Placement.List {
			if pos < 0 || pos >= total {
				return nil, fmt.Errorf("callback: placement position %d out of range [0,%d)", pos, total)
			}
			out[pos] = inputs[i]
			used[pos] = true
		}
		bi := 0
		for i := 0; i < total; i++ {
			if used[i] {
				continue
			}
			if bi >= len(d.Bound) {
				return nil, fmt.Errorf("callback: placement list leaves no bound arg for position %d", i)
			}
			out[i] = d.Bound[bi]
			bi++
		}
		return out, nil

	case PlacementNone:
		// Rule 5: discard inputs; only legal for an optional requirement.
		if req == Required {
			return nil, fmt.Errorf("callback: placement none but inputs are required")
		}
		return append([]interface{}{}, d.Bound...), nil

	default:
		return nil, fmt.Errorf("callback: unknown placement kind %d", d.Placement.Kind)
	}
}
