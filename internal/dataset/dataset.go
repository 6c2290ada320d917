// Package dataset defines the immutable tabular dataset value the engine
// operates on, along with its content-derived identity.
//
// A Dataset is a column-major table of typed cells. Missing values are
// represented by untyped nil cells. Datasets are values: transformations
// never mutate one in place, they construct a new Dataset with a new
// Identity.
package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vk/datareadygo/internal/checksum"
)

// Kind is the physical cell type of a column.
type Kind string

const (
	KindNumber Kind = "number"
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
)

// Column holds one named, typed column. Cells is row-aligned with every
// other column in the same Dataset; a nil cell is a missing marker.
type Column struct {
	Name  string
	Kind  Kind
	Cells []any
}

// Identity is the opaque content fingerprint of a Dataset. Identical
// content always produces an identical Identity. It is used as the cache
// partition key for stage records.
type Identity string

// Dataset is an immutable tabular value. Construct one with New and treat
// it as read-only afterwards.
type Dataset struct {
	columns []Column
	byName  map[string]int
	rows    int
	id      Identity
}

// New validates the columns (equal lengths, unique names, known kinds) and
// returns a Dataset with its identity computed.
func New(columns ...Column) (*Dataset, error) {
	byName := make(map[string]int, len(columns))
	rows := 0
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("dataset: column %d has an empty name", i)
		}
		if _, dup := byName[col.Name]; dup {
			return nil, fmt.Errorf("dataset: duplicate column name %q", col.Name)
		}
		switch col.Kind {
		case KindNumber, KindString, KindBool, KindTime:
		default:
			return nil, fmt.Errorf("dataset: column %q has unknown kind %q", col.Name, col.Kind)
		}
		if i == 0 {
			rows = len(col.Cells)
		} else if len(col.Cells) != rows {
			return nil, fmt.Errorf("dataset: column %q has %d cells, want %d", col.Name, len(col.Cells), rows)
		}
		byName[col.Name] = i
	}

	d := &Dataset{columns: columns, byName: byName, rows: rows}
	d.id = d.fingerprint()
	return d, nil
}

// ID returns the content-derived identity of the dataset.
func (d *Dataset) ID() Identity { return d.id }

// NumRows returns the row count.
func (d *Dataset) NumRows() int { return d.rows }

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Columns returns the columns in declaration order. The returned slice
// shares backing arrays with the dataset and must not be modified.
func (d *Dataset) Columns() []Column { return d.columns }

// Column returns the named column, or false when it does not exist.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Column{}, false
	}
	return d.columns[i], true
}

// Names returns the column names in declaration order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, col := range d.columns {
		names[i] = col.Name
	}
	return names
}

// RowFingerprint returns a stable key for row i built from every cell in
// the row. Two rows with equal cells (missing-equals-missing) share a key.
func (d *Dataset) RowFingerprint(i int) string {
	var sb strings.Builder
	for _, col := range d.columns {
		sb.WriteString(cellToken(col.Cells[i]))
		sb.WriteByte(0x1f)
	}
	return sb.String()
}

// fingerprint hashes the schema, the row count and every cell. The schema
// part is sorted by column name, but the cells are hashed in declaration
// order, so reordering columns always produces a different identity.
func (d *Dataset) fingerprint() Identity {
	var sb strings.Builder
	schema := make([]string, len(d.columns))
	for i, col := range d.columns {
		schema[i] = col.Name + ":" + string(col.Kind)
	}
	sort.Strings(schema)
	sb.WriteString(strings.Join(schema, ","))
	sb.WriteString("|rows=")
	sb.WriteString(strconv.Itoa(d.rows))
	sb.WriteByte('|')
	for _, col := range d.columns {
		for _, cell := range col.Cells {
			sb.WriteString(cellToken(cell))
			sb.WriteByte(0x1e)
		}
	}
	return Identity("ds_" + checksum.Sum([]byte(sb.String()))[:16])
}

// cellToken renders one cell as a canonical token for hashing and row
// comparison. Missing cells get a dedicated token so missing == missing.
func cellToken(cell any) string {
	switch v := cell.(type) {
	case nil:
		return "\x00"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	case string:
		return "s:" + v
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
