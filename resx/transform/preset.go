package transform

import "github.com/redbco/redb-resx/resx"

// WrapChain applies steps to inner in order (steps[0] innermost), returning
// the fully-wrapped Reference. It is the in-memory counterpart to a
// PresetStore-loaded Step list: Load a preset, then WrapChain it onto
// whichever base reference the caller is transforming.
func (p *Producer) WrapChain(inner resx.Reference, steps []Step) (resx.Reference, error) {
	ref := inner
	for _, step := range steps {
		var err error
		ref, err = p.Wrap(ref, step.Transformer, step.Options)
		if err != nil {
			return resx.Reference{}, err
		}
	}
	return ref, nil
}
