package authz

import (
	"context"
	"fmt"

	cedar "github.com/cedar-policy/cedar-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/autofilter/internal/domain/principal"
	"github.com/kailas-cloud/autofilter/internal/logger"
)

const cedarNamespace = "Autofilter"

// CedarAuthorizer evaluates requests against a Cedar policy set.
type CedarAuthorizer struct {
	policySet *cedar.PolicySet
}

// NewCedarAuthorizer parses policyBytes, or the built-in policies when nil.
func NewCedarAuthorizer(policyBytes []byte) (*CedarAuthorizer, error) {
	if policyBytes == nil {
		policyBytes = []byte(defaultPolicies)
	}

	ps, err := cedar.NewPolicySetFromBytes("policies.cedar", policyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Cedar policies: %w", err)
	}

	return &CedarAuthorizer{policySet: ps}, nil
}

// Authorize builds the principal and collection entities and evaluates the request.
func (a *CedarAuthorizer) Authorize(ctx context.Context, req Request) (Decision, error) {
	p := req.Principal

	principalUID := cedar.NewEntityUID(cedar.EntityType(cedarNamespace+"::User"), cedar.String(p.ID))
	perms := make([]cedar.Value, len(p.Permissions))
	for i, perm := range p.Permissions {
		perms[i] = cedar.String(perm)
	}

	resourceUID := cedar.NewEntityUID(cedar.EntityType(cedarNamespace+"::Collection"), cedar.String(req.Collection))

	entities := cedar.EntityMap{
		principalUID: cedar.Entity{
			UID: principalUID,
			Attributes: cedar.NewRecord(cedar.RecordMap{
				"permissions": cedar.NewSet(perms...),
				"superuser":   cedar.Boolean(p.Superuser),
			}),
		},
		resourceUID: cedar.Entity{
			UID: resourceUID,
			Attributes: cedar.NewRecord(cedar.RecordMap{
				"addPermission": cedar.String(req.Collection + "." + ActionAdd),
			}),
		},
	}

	cedarReq := cedar.Request{
		Principal: principalUID,
		Action:    cedar.NewEntityUID(cedar.EntityType(cedarNamespace+"::Action"), cedar.String(req.Action)),
		Resource:  resourceUID,
		Context:   cedar.NewRecord(cedar.RecordMap{}),
	}

	decision, diagnostic := cedar.Authorize(a.policySet, entities, cedarReq)

	var reasons []string
	for _, r := range diagnostic.Reasons {
		reasons = append(reasons, string(r.PolicyID))
	}

	logger.FromContext(ctx).Debug("Authorization decision",
		zap.String("principal", p.ID),
		zap.String("action", req.Action),
		zap.String("collection", req.Collection),
		zap.Bool("allowed", decision == cedar.Allow),
		zap.Strings("reasons", reasons),
	)

	return Decision{Allowed: decision == cedar.Allow, Reasons: reasons}, nil
}

// CanAdd reports whether p may create records in collection.
func (a *CedarAuthorizer) CanAdd(ctx context.Context, p principal.Principal, collection string) (bool, error) {
	return HasAddPermission(ctx, a, p, collection)
}
