package resx

import "context"

// FoldOrder selects which end of the comparison list Compare folds from.
type FoldOrder int

const (
	// OrderFirst folds starting at the outermost (first) link.
	OrderFirst FoldOrder = iota
	// OrderLast folds starting at the innermost (last) link.
	OrderLast
)

// Result is the outcome of a comparison.
type Result int

const (
	ResultEq Result = iota
	ResultNe
	ResultLt
	ResultGt
	ResultNa
)

func (r Result) String() string {
	switch r {
	case ResultEq:
		return "Eq"
	case ResultNe:
		return "Ne"
	case ResultLt:
		return "Lt"
	case ResultGt:
		return "Gt"
	default:
		return "Na"
	}
}

// CompareOptions configures Compare, per §4.F.1.
type CompareOptions struct {
	Order   FoldOrder
	Content bool
	// Unsure, if non-nil, remaps a final Na fold result to *Unsure.
	Unsure *Result
}

// Compare orders a and b along their shared lineage, per §4.F.1. It returns
// nil (with no error) when a and b are not alike.
func Compare(ctx context.Context, s *Settings, a, b Resource, opts CompareOptions) (*Result, error) {
	if !Alike(s, a.Reference, b.Reference) {
		return nil, nil
	}

	links, err := comparisonList(ctx, s, a.Reference, b.Reference)
	if err != nil {
		return nil, err
	}
	if opts.Order == OrderLast {
		for i, j := 0, len(links)-1; i < j; i, j = i+1, j-1 {
			links[i], links[j] = links[j], links[i]
		}
	}

	result := fold(links)

	if (result == ResultEq || result == ResultNa) && opts.Content {
		eq, cerr := compareContent(a.Content, b.Content, s.Combiner())
		if cerr != nil {
			return nil, cerr
		}
		if eq {
			r := ResultEq
			return &r, nil
		}
		r := ResultNe
		return &r, nil
	}

	if result == ResultNa && opts.Unsure != nil {
		return opts.Unsure, nil
	}

	return &result, nil
}

// comparisonList walks a's and b's source chains in parallel, emitting
// Integrity.Compare at every step, per §4.F.1 step 2.
func comparisonList(ctx context.Context, s *Settings, a, b Reference) ([]Comparison, error) {
	var out []Comparison
	curA, curB := &a, &b
	for curA != nil && curB != nil {
		out = append(out, CompareIntegrity(curA.Integrity, curB.Integrity))

		nextA, err := Source(ctx, s, *curA)
		if err != nil {
			return nil, err
		}
		nextB, err := Source(ctx, s, *curB)
		if err != nil {
			return nil, err
		}
		curA, curB = nextA, nextB
	}
	return out, nil
}

// fold implements the step 3 fold table of §4.F.1.
func fold(links []Comparison) Result {
	state := ResultEq
	for _, link := range links {
		switch link.ChecksumEquality {
		case EqualityTrue:
			if link.TimestampOrder == OrderEq {
				state = ResultEq
				continue
			}
			return orderToResult(link.TimestampOrder)
		case EqualityFalse:
			if link.TimestampOrder == OrderEq {
				return ResultNe
			}
			return orderToResult(link.TimestampOrder)
		default: // EqualityUnknown
			if link.TimestampOrder == OrderEq {
				state = ResultNa
				continue
			}
			return orderToResult(link.TimestampOrder)
		}
	}
	return state
}

func orderToResult(o Order) Result {
	if o == OrderLt {
		return ResultLt
	}
	return ResultGt
}

func compareContent(a, b Content, combiner Combiner) (bool, error) {
	va, err := Data(a, combiner)
	if err != nil {
		return false, err
	}
	vb, err := Data(b, combiner)
	if err != nil {
		return false, err
	}
	ba, aok := va.([]byte)
	bb, bok := vb.([]byte)
	if !aok || !bok {
		return false, nil
	}
	if len(ba) != len(bb) {
		return false, nil
	}
	for i := range ba {
		if ba[i] != bb[i] {
			return false, nil
		}
	}
	return true, nil
}

// Newest returns whichever of a, b compares Gt (newer); a trivial projection
// of Compare per §4.F.1.
func Newest(ctx context.Context, s *Settings, a, b Resource, opts CompareOptions) (*Resource, error) {
	r, err := Compare(ctx, s, a, b, opts)
	if err != nil || r == nil {
		return nil, err
	}
	if *r == ResultLt {
		return &b, nil
	}
	return &a, nil
}

// Oldest returns whichever of a, b compares Lt (older); the inverse projection of Newest.
func Oldest(ctx context.Context, s *Settings, a, b Resource, opts CompareOptions) (*Resource, error) {
	r, err := Compare(ctx, s, a, b, opts)
	if err != nil || r == nil {
		return nil, err
	}
	if *r == ResultGt {
		return &b, nil
	}
	return &a, nil
}
