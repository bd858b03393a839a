package resx

import "context"

// MustOpen calls Open and panics with the tagged *errors.Error verbatim on
// failure, so a recovering caller can still errors.As it (§7's "panic-class
// wrappers ... must wrap the tagged error verbatim").
func MustOpen(ctx context.Context, s *Settings, uri string, opts OpenOptions) Resource {
	r, err := Open(ctx, s, uri, opts)
	if err != nil {
		panic(err)
	}
	return r
}

// MustStore calls Store and panics verbatim on failure.
func MustStore(ctx context.Context, s *Settings, resource Resource, opts StoreOptions) Resource {
	r, err := Store(ctx, s, resource, opts)
	if err != nil {
		panic(err)
	}
	return r
}

// MustFinalise calls Finalise and panics verbatim on failure.
func MustFinalise(ctx context.Context, s *Settings, r Resource, opts FinaliseOptions) Resource {
	out, err := Finalise(ctx, s, r, opts)
	if err != nil {
		panic(err)
	}
	return out
}
