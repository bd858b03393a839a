package resx

import "context"

// FinaliseOptions configures Finalise, per §4.F.2. Content defaults to true
// (materialise streaming content); Hash, if nil, uses Settings.HashDefault();
// NoHash skips hashing regardless of Hash/HashDefault.
type FinaliseOptions struct {
	Content *bool
	Hash    *string
	NoHash  bool
}

// Finalise produces a Resource whose content is eager (unless
// opts.Content explicitly requests otherwise) and whose checksum is set via
// the configured or requested algorithm (unless opts.NoHash). This is the
// point at which a streaming reference gains a stable identity, per §4.F.2.
func Finalise(ctx context.Context, s *Settings, r Resource, opts FinaliseOptions) (Resource, error) {
	out := r

	wantContent := true
	if opts.Content != nil {
		wantContent = *opts.Content
	}
	if wantContent && out.Content.IsStream() {
		c, err := Materialise(out.Content, s.Combiner())
		if err != nil {
			return Resource{}, err
		}
		out.Content = c
	}

	if !opts.NoHash {
		algo := s.HashDefault()
		if opts.Hash != nil {
			algo = *opts.Hash
		}
		if algo != "" {
			sum, err := Hash(ctx, s, out, HashRequest{Algorithm: algo})
			if err != nil {
				return Resource{}, err
			}
			out.Reference.Integrity.Checksum = &sum
		}
	}

	return out, nil
}
