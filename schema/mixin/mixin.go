// Package mixin provides reusable field blocks for graphdl entities.
//
// A mixin is an ordered list of field declarations that several entities
// share. Fields an entity declares itself take precedence over mixin fields
// of the same name.
//
// In code:
//
//	load.New().Entity("Post").Field("title", "string").Mixin(mixin.Time, mixin.Tenant)
//
// In a schema file, by name:
//
//	Post:
//	  $mixin: [time, tenant]
//	  title: string
package mixin

import (
	"slices"
	"strings"
)

// Field is one field declaration of a mixin.
type Field struct {
	Name string
	Def  string
}

// Mixin is implemented by reusable field blocks.
type Mixin interface {
	Fields() []Field
}

// Fields is a Mixin made of a fixed field list.
type Fields []Field

// Fields implements Mixin.
func (f Fields) Fields() []Field { return f }

// Built-in mixins.
var (
	// CreateTime records when an entity was created.
	CreateTime = Fields{{"created_at", "datetime?"}}
	// UpdateTime records when an entity last changed.
	UpdateTime = Fields{{"updated_at", "datetime?"}}
	// Time combines CreateTime and UpdateTime.
	Time = Compose(CreateTime, UpdateTime)
	// SoftDelete marks an entity deleted without removing it.
	SoftDelete = Fields{{"deleted_at", "datetime?"}}
	// Tenant scopes an entity to a tenant.
	Tenant = Fields{{"tenant_id", "string?"}}
	// Owner records the id of the owning user.
	Owner = Fields{{"owner", "string?"}}
	// Audit records who created and last changed an entity.
	Audit = Compose(Time, Fields{{"created_by", "string?"}, {"updated_by", "string?"}})
)

var registry = map[string]Mixin{
	"create_time": CreateTime,
	"update_time": UpdateTime,
	"time":        Time,
	"soft_delete": SoftDelete,
	"tenant":      Tenant,
	"owner":       Owner,
	"audit":       Audit,
}

// Compose concatenates mixins. Later duplicates of a field name are dropped.
func Compose(ms ...Mixin) Fields {
	var out Fields
	for _, m := range ms {
		for _, f := range m.Fields() {
			if !slices.ContainsFunc(out, func(o Field) bool { return o.Name == f.Name }) {
				out = append(out, f)
			}
		}
	}
	return out
}

// Lookup returns the built-in mixin registered under name. Names are case
// insensitive and accept '-' for '_'.
func Lookup(name string) (Mixin, bool) {
	m, ok := registry[strings.ReplaceAll(strings.ToLower(name), "-", "_")]
	return m, ok
}

// Names returns the registered mixin names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
