package cashier

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Customer is the billing view of an owner entity. The Gateway* and
// PaymentMethod* fields are the only ones this package writes.
type Customer struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Profile   *Profile

	GatewayCustomerID     string
	GatewayCustomerCode   string
	PaymentMethodType     string
	PaymentMethodLastFour string
	TrialEndsAt           *time.Time
}

// Profile is an optional linked record holding personal details that the
// owner itself does not carry.
type Profile struct {
	FirstName string
	LastName  string
	Phone     string
}

// HasGatewayCustomer reports whether a gateway customer was created for
// the owner.
func (c *Customer) HasGatewayCustomer() bool {
	return c.GatewayCustomerID != "" || c.GatewayCustomerCode != ""
}

// OnGenericTrialAt reports whether the owner-level trial is running at now.
func (c *Customer) OnGenericTrialAt(now time.Time) bool {
	return c.TrialEndsAt != nil && now.Before(*c.TrialEndsAt)
}

// CustomerField names a personal field sent on customer creation.
type CustomerField string

const (
	FieldEmail     CustomerField = "email"
	FieldFirstName CustomerField = "first_name"
	FieldLastName  CustomerField = "last_name"
	FieldPhone     CustomerField = "phone"
)

var customerFields = []CustomerField{FieldEmail, FieldFirstName, FieldLastName, FieldPhone}

// FieldResolver supplies a field value the owner does not expose directly.
// It runs after explicit options, the owner attribute and the profile.
type FieldResolver func(ctx context.Context, c *Customer, field CustomerField) (string, bool)

// CustomerOptions are explicit values for customer creation. Set fields
// win over anything resolved from the owner.
type CustomerOptions struct {
	Email     string         `validate:"omitempty,email"`
	FirstName string         `validate:"omitempty,max=100"`
	LastName  string         `validate:"omitempty,max=100"`
	Phone     string         `validate:"omitempty,max=32"`
	Metadata  map[string]any `validate:"-"`
}

func (o CustomerOptions) field(f CustomerField) string {
	switch f {
	case FieldEmail:
		return o.Email
	case FieldFirstName:
		return o.FirstName
	case FieldLastName:
		return o.LastName
	case FieldPhone:
		return o.Phone
	}
	return ""
}

func (c *Customer) attribute(f CustomerField) string {
	switch f {
	case FieldEmail:
		return c.Email
	case FieldFirstName:
		return c.FirstName
	case FieldLastName:
		return c.LastName
	case FieldPhone:
		return c.Phone
	}
	return ""
}

func (p *Profile) attribute(f CustomerField) string {
	if p == nil {
		return ""
	}
	switch f {
	case FieldFirstName:
		return p.FirstName
	case FieldLastName:
		return p.LastName
	case FieldPhone:
		return p.Phone
	}
	return ""
}

// resolveCustomerPayload builds the create-customer body. Empty fields are
// left out so the gateway keeps its own defaults.
func resolveCustomerPayload(ctx context.Context, c *Customer, opts CustomerOptions, resolvers []FieldResolver) Payload {
	p := Payload{}
	for _, f := range customerFields {
		if v := resolveField(ctx, c, opts, resolvers, f); v != "" {
			p[string(f)] = v
		}
	}
	if len(opts.Metadata) > 0 {
		p["metadata"] = opts.Metadata
	}
	return p
}

func resolveField(ctx context.Context, c *Customer, opts CustomerOptions, resolvers []FieldResolver, f CustomerField) string {
	if v := opts.field(f); v != "" {
		return v
	}
	if v := c.attribute(f); v != "" {
		return v
	}
	if v := c.Profile.attribute(f); v != "" {
		return v
	}
	for _, r := range resolvers {
		if v, ok := r(ctx, c, f); ok && v != "" {
			return v
		}
	}
	return ""
}
