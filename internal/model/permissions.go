package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
)

// Permission resources.
const (
	ResourceUsers     = "users"
	ResourceSupplies  = "supplies"
	ResourceHistories = "supply_histories"
	ResourceReports   = "reports"
)

// Permission actions.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Permissions maps a resource to the actions allowed on it. It is stored as a
// JSON object in the users.permissions column.
type Permissions map[string][]string

// Allows reports whether action is granted on resource.
func (p Permissions) Allows(resource, action string) bool {
	return slices.Contains(p[resource], action)
}

// Value implements driver.Valuer.
func (p Permissions) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding permissions: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Permissions) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scanning permissions: unsupported type %T", src)
	}
	if len(data) == 0 {
		*p = nil
		return nil
	}
	perms := Permissions{}
	if err := json.Unmarshal(data, &perms); err != nil {
		return fmt.Errorf("decoding permissions: %w", err)
	}
	*p = perms
	return nil
}

// DefaultPermissions returns the permission set granted to a role when the
// user has none stored.
func DefaultPermissions(role string) Permissions {
	switch role {
	case RoleAdmin:
		return Permissions{
			ResourceUsers:     {ActionView, ActionCreate, ActionEdit, ActionDelete},
			ResourceSupplies:  {ActionView, ActionCreate, ActionEdit, ActionDelete},
			ResourceHistories: {ActionView, ActionCreate, ActionEdit, ActionDelete},
			ResourceReports:   {ActionView},
		}
	case RoleStaff:
		return Permissions{
			ResourceSupplies:  {ActionView, ActionCreate, ActionEdit},
			ResourceHistories: {ActionView, ActionCreate},
			ResourceReports:   {ActionView},
		}
	case RoleViewer:
		return Permissions{
			ResourceSupplies:  {ActionView},
			ResourceHistories: {ActionView},
			ResourceReports:   {ActionView},
		}
	}
	return Permissions{}
}
