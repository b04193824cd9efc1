package dbutil

import (
	"strconv"
	"strings"
)

// MultiInsert builds the values clause and argument list for a
// multi-row INSERT with numbered postgres placeholders.
type MultiInsert struct {
	startIndex int
	numColumns int
	values     []interface{}
	query      strings.Builder
}

// PostgresMultiInsert returns a MultiInsert whose placeholders start at
// startIndex. rowsHint preallocates space for the expected number of rows.
func PostgresMultiInsert(rowsHint, startIndex int) *MultiInsert {
	if startIndex < 1 {
		panic("dbutil.PostgresMultiInsert start index must be > 0")
	}
	m := &MultiInsert{startIndex: startIndex}
	if rowsHint > 0 {
		m.values = make([]interface{}, 0, rowsHint)
	}
	return m
}

// Append adds one row of values. Every row must have the same number of columns.
func (m *MultiInsert) Append(values ...interface{}) {
	if m.numColumns == 0 {
		m.numColumns = len(values)
	} else if m.numColumns != len(values) {
		panic("dbutil.MultiInsert rows must have a consistent number of columns")
	}
	if m.query.Len() != 0 {
		m.query.WriteByte(',')
	}
	m.query.WriteByte('(')
	for i := range values {
		if i != 0 {
			m.query.WriteByte(',')
		}
		m.query.WriteByte('$')
		m.query.WriteString(strconv.Itoa(m.startIndex + len(m.values) + i))
	}
	m.query.WriteByte(')')
	m.values = append(m.values, values...)
}

// IsEmpty returns true if no rows have been appended.
func (m *MultiInsert) IsEmpty() bool {
	return len(m.values) == 0
}

// NumColumns returns the number of columns per row.
func (m *MultiInsert) NumColumns() int {
	return m.numColumns
}

// NumRows returns the number of rows appended.
func (m *MultiInsert) NumRows() int {
	if m.numColumns == 0 {
		return 0
	}
	return len(m.values) / m.numColumns
}

// Query returns the values clause, e.g. ($1,$2),($3,$4)
func (m *MultiInsert) Query() string {
	return m.query.String()
}

// Values returns the flattened argument list.
func (m *MultiInsert) Values() []interface{} {
	return m.values
}

// VarArgs builds a SET clause with numbered postgres placeholders.
type VarArgs struct {
	startIndex int
	columns    []string
	values     []interface{}
}

// PostgresVarArgs returns a VarArgs whose placeholders start at startIndex.
func PostgresVarArgs(startIndex int) *VarArgs {
	if startIndex < 1 {
		panic("dbutil.PostgresVarArgs start index must be > 0")
	}
	return &VarArgs{startIndex: startIndex}
}

// Append adds a column and its value.
func (v *VarArgs) Append(column string, value interface{}) {
	v.columns = append(v.columns, column)
	v.values = append(v.values, value)
}

// IsEmpty returns true if no columns have been appended.
func (v *VarArgs) IsEmpty() bool {
	return len(v.columns) == 0
}

// ColumnsForUpdate returns the SET clause body, e.g. name=$3,age=$4
func (v *VarArgs) ColumnsForUpdate() string {
	if len(v.columns) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range v.columns {
		if i != 0 {
			b.WriteByte(',')
		}
		b.WriteString(c)
		b.WriteString("=$")
		b.WriteString(strconv.Itoa(v.startIndex + i))
	}
	return b.String()
}

// Values returns the argument list.
func (v *VarArgs) Values() []interface{} {
	return v.values
}
