package auth

import "context"

// Evidence is what the gateway learned about the caller's session.
type Evidence struct {
	Authenticated bool
	UserID        string
	SessionID     string
}

type evidenceKey struct{}

// WithEvidence attaches e to ctx.
func WithEvidence(ctx context.Context, e Evidence) context.Context {
	return context.WithValue(ctx, evidenceKey{}, e)
}

// EvidenceFrom returns the evidence attached to ctx.
func EvidenceFrom(ctx context.Context) (Evidence, bool) {
	e, ok := ctx.Value(evidenceKey{}).(Evidence)
	return e, ok
}

// RequestEvidence answers HasSession from the request context.
type RequestEvidence struct{}

func (RequestEvidence) HasSession(ctx context.Context) bool {
	e, ok := EvidenceFrom(ctx)
	return ok && e.Authenticated
}
