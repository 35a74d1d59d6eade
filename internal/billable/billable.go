// Package billable maps application entities (users, teams, organizations)
// to their Polar customer records and exposes billing operations on them.
package billable

import "errors"

// Ref identifies a billable entity by kind and application-level ID. The
// pair is stamped into checkout metadata so webhook deliveries can find
// their way back to the owning entity.
type Ref struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (r Ref) Valid() bool { return r.Kind != "" && r.ID != "" }

const (
	MetadataBillableType = "billable_type"
	MetadataBillableID   = "billable_id"
)

var (
	ErrNoBillable     = errors.New("billable_not_resolved")
	ErrInvalidRef     = errors.New("invalid_billable_ref")
	ErrNoCustomer     = errors.New("customer_not_linked")
	ErrCustomerExists = errors.New("customer_already_exists")
)
