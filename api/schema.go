package api

// Schema is the root configuration of a seed graph.
// It declares the entity types, their commit dependencies and field rules.
type Schema struct {
	// Version of the seedgraph schema.
	Version string `hcl:"version,optional" json:"version"`
	// Entities in declaration order. Declaration order is the tie-break for
	// types with no ordering constraint between them.
	Entities []Entity `hcl:"entity,block" json:"entities,omitempty"`
}

// Entity describes one entity type.
type Entity struct {
	// Name of the entity type (e.g. "Account").
	Name string `hcl:"name,label" json:"name"`
	// DependsOn lists types that must commit before this one.
	DependsOn []string `hcl:"depends_on,optional" json:"depends_on,omitempty"`
	// Discoverable fields are indexed by value for later lookup.
	Discoverable []string `hcl:"discoverable,optional" json:"discoverable,omitempty"`
	// ReadOnly fields reject direct writes; their values are shelved and
	// folded in at commit.
	ReadOnly []string `hcl:"read_only,optional" json:"read_only,omitempty"`
	// Restricted fields are never sent to a persistence engine.
	Restricted []string `hcl:"restricted,optional" json:"restricted,omitempty"`
	// Privileged records commit in a separate phase.
	Privileged bool `hcl:"privileged,optional" json:"privileged,omitempty"`
	// Source is a JSONPath selecting this entity's items in a data file.
	Source string `hcl:"source,optional" json:"source,omitempty"`
	// RecordTypes maps variant names to record-type identifiers.
	RecordTypes map[string]string `hcl:"record_types,optional" json:"record_types,omitempty"`
	// Links resolve relationship fields from data-file values.
	Links []Link `hcl:"link,block" json:"links,omitempty"`
}

// Link fills Field with the identifier of the Entity record whose Match
// field equals the item's Value key.
type Link struct {
	Field  string `hcl:"field,label" json:"field"`
	Entity string `hcl:"entity" json:"entity"`
	Match  string `hcl:"match" json:"match"`
	// Value is the item key holding the match value.
	Value string `hcl:"value" json:"value"`
}

// Entity returns the entity named name, if declared.
func (s *Schema) Entity(name string) (*Entity, bool) {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i], true
		}
	}
	return nil, false
}
