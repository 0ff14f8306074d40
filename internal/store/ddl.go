package store

import (
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
)

// CreateTableSQL renders the CREATE TABLE statement for a descriptor. The
// column set is exactly the descriptor's columns plus a surrogate id primary
// key; the conflict key gets a unique constraint, the parent reference a
// foreign key. parentTable is the parent entity's table name, empty for
// independent entities.
func CreateTableSQL(d *entity.Descriptor, parentTable string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %q (\n", d.TableName)
	b.WriteString("\tid BIGSERIAL PRIMARY KEY")

	for _, c := range d.Columns {
		fmt.Fprintf(&b, ",\n\t%q %s", c.Name, columnType(&c))
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}

	fmt.Fprintf(&b, ",\n\tUNIQUE (%q)", d.ConflictKey)
	if d.Parent != "" && parentTable != "" {
		fmt.Fprintf(&b, ",\n\tFOREIGN KEY (%q) REFERENCES %q (%q)",
			d.ParentKeyColumn, parentTable, d.ReferencedKeyColumn)
	}
	b.WriteString("\n)")
	return b.String()
}

func columnType(c *entity.Column) string {
	switch c.Kind {
	case entity.KindString:
		if c.MaxLen > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.MaxLen)
		}
		return "TEXT"
	case entity.KindInt32:
		return "INTEGER"
	case entity.KindInt64:
		return "BIGINT"
	case entity.KindDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", c.Precision, c.Scale)
	case entity.KindTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}
