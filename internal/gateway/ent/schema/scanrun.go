package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ScanRun holds the schema definition for the ScanRun entity.
type ScanRun struct {
	ent.Schema
}

// Fields of the ScanRun.
func (ScanRun) Fields() []ent.Field {
	return []ent.Field{
		field.String("scan_id").
			Unique().
			NotEmpty().
			Immutable(),
		field.String("project_root").
			NotEmpty(),
		field.String("language").
			NotEmpty(),
		field.String("job_id").
			Default(""),
		field.String("status").
			NotEmpty(),
		field.String("error").
			Default(""),
		field.Time("created_at").
			Default(time.Now),
		field.Time("finished_at").
			Optional(),
	}
}

// Edges of the ScanRun.
func (ScanRun) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("findings", Finding.Type),
	}
}

// Indexes of the ScanRun.
func (ScanRun) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("created_at"),
	}
}
