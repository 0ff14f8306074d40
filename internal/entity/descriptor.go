package entity

import "fmt"

// Kind is the declared physical type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt32
	KindInt64
	KindDecimal
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindDecimal:
		return "decimal"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column describes one physical column of an entity table, including the
// constraints the validator enforces and the target type the coercer
// converts to.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool

	// Decimal columns only.
	Precision int32
	Scale     int32

	// Timestamp columns only. Values are parsed with this layout in UTC.
	Layout string

	// Closed value set for enumerated integer columns. Nil means
	// unconstrained.
	Enum []int64

	// Monetary columns must coerce to a non-negative decimal.
	Monetary bool
	// Quantity columns must coerce to a positive integer.
	Quantity bool

	// Maximum string length, 0 for unlimited.
	MaxLen int
}

// CheckOp selects how a cross-field check combines its term columns.
type CheckOp int

const (
	// OpSum requires target == term1 + term2 + ...
	OpSum CheckOp = iota
	// OpProduct requires target == term1 * term2 * ...
	OpProduct
)

// Check is a cross-field arithmetic invariant: the target column must equal
// the combination of the term columns within the validator's tolerance.
type Check struct {
	Target string
	Terms  []string
	Op     CheckOp
}

// Descriptor is the registry entry for one entity type. Constructed once at
// process start and immutable afterwards.
type Descriptor struct {
	Name        string
	TableName   string
	ConflictKey string
	Columns     []Column

	// Parent is the name of the entity this one depends on, empty for
	// independent entities. ParentKeyColumn is this entity's foreign-key
	// column; ReferencedKeyColumn is the column it points at on the parent.
	Parent              string
	ParentKeyColumn     string
	ReferencedKeyColumn string

	Checks []Check
}

// ColumnNames returns the physical column names in declaration order.
func (d *Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column spec by name.
func (d *Descriptor) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// Validate checks the descriptor for construction mistakes. It runs once at
// registration time so that a bad descriptor is a startup failure, never a
// per-row surprise.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor has no name")
	}
	if d.TableName == "" {
		return fmt.Errorf("entity %s: table name is empty", d.Name)
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("entity %s: no columns declared", d.Name)
	}
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if c.Name == "" {
			return fmt.Errorf("entity %s: column with empty name", d.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("entity %s: duplicate column %s", d.Name, c.Name)
		}
		seen[c.Name] = true
		switch c.Kind {
		case KindString, KindInt32, KindInt64:
		case KindDecimal:
			if c.Precision <= 0 || c.Scale < 0 || c.Scale > c.Precision {
				return fmt.Errorf("entity %s: column %s has invalid decimal precision %d scale %d",
					d.Name, c.Name, c.Precision, c.Scale)
			}
		case KindTimestamp:
			if c.Layout == "" {
				return fmt.Errorf("entity %s: timestamp column %s has no layout", d.Name, c.Name)
			}
		default:
			return fmt.Errorf("entity %s: column %s has unknown kind %s", d.Name, c.Name, c.Kind)
		}
		if c.Monetary && c.Kind != KindDecimal {
			return fmt.Errorf("entity %s: monetary column %s must be decimal", d.Name, c.Name)
		}
		if c.Quantity && c.Kind != KindInt32 && c.Kind != KindInt64 {
			return fmt.Errorf("entity %s: quantity column %s must be an integer kind", d.Name, c.Name)
		}
	}
	if d.ConflictKey == "" {
		return fmt.Errorf("entity %s: conflict key is empty", d.Name)
	}
	if !seen[d.ConflictKey] {
		return fmt.Errorf("entity %s: conflict key %s is not a declared column", d.Name, d.ConflictKey)
	}
	if d.Parent != "" {
		if d.ParentKeyColumn == "" || d.ReferencedKeyColumn == "" {
			return fmt.Errorf("entity %s: parent %s declared without a foreign-key column pair", d.Name, d.Parent)
		}
		if !seen[d.ParentKeyColumn] {
			return fmt.Errorf("entity %s: foreign-key column %s is not a declared column", d.Name, d.ParentKeyColumn)
		}
	}
	for _, ch := range d.Checks {
		if !seen[ch.Target] {
			return fmt.Errorf("entity %s: check target %s is not a declared column", d.Name, ch.Target)
		}
		if len(ch.Terms) == 0 {
			return fmt.Errorf("entity %s: check on %s has no terms", d.Name, ch.Target)
		}
		for _, t := range ch.Terms {
			if !seen[t] {
				return fmt.Errorf("entity %s: check term %s is not a declared column", d.Name, t)
			}
		}
	}
	return nil
}
