// Package authz decides admin permissions with Cedar policies.
package authz

import (
	"context"

	"github.com/kailas-cloud/autofilter/internal/domain/principal"
)

// ActionAdd is the Cedar action for creating records in a collection.
const ActionAdd = "add"

// Request is one authorization question.
type Request struct {
	Principal principal.Principal
	Action    string
	// Collection is the resource the action targets.
	Collection string
}

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	// Reasons lists the ids of the policies that contributed.
	Reasons []string
}

// Authorizer evaluates authorization decisions.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) (Decision, error)
}

// HasAddPermission reports whether p may create records in collection.
// Anonymous principals never may.
func HasAddPermission(ctx context.Context, a Authorizer, p principal.Principal, collection string) (bool, error) {
	if p.Anonymous() {
		return false, nil
	}
	d, err := a.Authorize(ctx, Request{Principal: p, Action: ActionAdd, Collection: collection})
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}
