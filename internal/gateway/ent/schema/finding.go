package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Finding holds the schema definition for the Finding entity.
type Finding struct {
	ent.Schema
}

// Fields of the Finding.
func (Finding) Fields() []ent.Field {
	return []ent.Field{
		field.String("file_path").
			NotEmpty(),
		field.Int("start_line").
			Min(0),
		field.Int("end_line"),
		field.String("title").
			NotEmpty(),
		field.Text("comment").
			Default(""),
		field.String("severity").
			Default(""),
		field.String("detector_id").
			Default(""),
	}
}

// Edges of the Finding.
func (Finding) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", ScanRun.Type).
			Ref("findings").
			Unique(),
	}
}

// Indexes of the Finding.
func (Finding) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("file_path"),
	}
}
