// Package access evaluates role- and ownership-based authorization decisions
// and the step-up authentication gate for sensitive operations.
package access

import "attachapi/internal/model"

// Operation is a mediated action on a stored attachment.
type Operation string

const (
	OpRead   Operation = "READ"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Deny reasons. The service maps ReasonNoAccess to a not-found shaped response
// so resource existence is not leaked to actors with no claim at all.
const (
	ReasonNoAccess = "role has no access to this resource class"
	ReasonNotOwner = "operation restricted to the resource owner"
)

// Resource carries the attachment facts the policy needs, plus externally
// supplied business scope (the owner's department).
type Resource struct {
	OwnerID    string
	Department string
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allow  bool
	Reason string // set when Allow is false
}

// RolePolicy declares what one role may do. All role/operation pairings live
// in tables of these, never in scattered conditionals.
type RolePolicy struct {
	ReadOwn    bool
	ReadAny    bool
	ReadScoped bool // read others' when departments match
	DeleteOwn  bool
	DeleteAny  bool
	UpdateOwn  bool
	UpdateAny  bool
}

// Policy decides operations from a declarative role table. It holds no
// mutable state and writes nothing; auditing the outcome is the caller's job.
type Policy struct {
	table map[model.Role]RolePolicy
}

// NewPolicy builds a policy from an explicit role table. Roles absent from
// the table are denied everything.
func NewPolicy(table map[model.Role]RolePolicy) *Policy {
	return &Policy{table: table}
}

// DefaultPolicy is the shipped role table: the elevated role touches
// everything, the resource-owning role class (accountants) shares reads but
// deletes only its own uploads, and the remaining roles are confined to their
// own files with department-scoped reads.
func DefaultPolicy() *Policy {
	return NewPolicy(map[model.Role]RolePolicy{
		model.RoleSuperAdmin: {ReadOwn: true, ReadAny: true, DeleteOwn: true, DeleteAny: true, UpdateOwn: true, UpdateAny: true},
		model.RoleAccountant: {ReadOwn: true, ReadAny: true, DeleteOwn: true, UpdateOwn: true},
		model.RoleHR:         {ReadOwn: true, ReadScoped: true, DeleteOwn: true, UpdateOwn: true},
		model.RoleSales:      {ReadOwn: true, ReadScoped: true, DeleteOwn: true, UpdateOwn: true},
		model.RoleMarketing:  {ReadOwn: true, ReadScoped: true, DeleteOwn: true, UpdateOwn: true},
	})
}

// Decide evaluates (actor, operation, resource) against the role table. It is
// a pure function: same inputs, same decision, no side effects.
func (p *Policy) Decide(actor model.Principal, op Operation, res Resource) Decision {
	rp, ok := p.table[actor.Role]
	if !ok {
		return Decision{Reason: ReasonNoAccess}
	}

	own := actor.ID == res.OwnerID

	switch op {
	case OpRead:
		if rp.ReadAny || (own && rp.ReadOwn) {
			return Decision{Allow: true}
		}
		if rp.ReadScoped && res.Department != "" && actor.Department == res.Department {
			return Decision{Allow: true}
		}
		if rp.ReadOwn || rp.ReadScoped {
			return Decision{Reason: ReasonNotOwner}
		}
		return Decision{Reason: ReasonNoAccess}

	case OpDelete:
		if rp.DeleteAny || (own && rp.DeleteOwn) {
			return Decision{Allow: true}
		}
		if rp.DeleteOwn {
			return Decision{Reason: ReasonNotOwner}
		}
		return Decision{Reason: ReasonNoAccess}

	case OpUpdate:
		if rp.UpdateAny || (own && rp.UpdateOwn) {
			return Decision{Allow: true}
		}
		if rp.UpdateOwn {
			return Decision{Reason: ReasonNotOwner}
		}
		return Decision{Reason: ReasonNoAccess}
	}

	return Decision{Reason: ReasonNoAccess}
}

// CanReadAny reports whether the actor's role may read resources regardless
// of ownership. List operations use it to decide whether an owner filter may
// be widened beyond the actor's own uploads.
func (p *Policy) CanReadAny(actor model.Principal) bool {
	rp, ok := p.table[actor.Role]
	return ok && rp.ReadAny
}

// CanReadClass reports whether the actor's role has any read claim on the
// resource class at all. The service uses it to choose between a deny with a
// reason and a not-found shaped response.
func (p *Policy) CanReadClass(actor model.Principal) bool {
	rp, ok := p.table[actor.Role]
	return ok && (rp.ReadOwn || rp.ReadAny || rp.ReadScoped)
}
