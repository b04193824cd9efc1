package dbutil

import (
	"fmt"

	"github.com/tecnotop/backend/test"

	"testing"
)

func ExamplePostgresMultiInsert() {
	args := PostgresMultiInsert(0, 7)
	args.Append("joe", 88)
	args.Append("sue", 77)
	fmt.Println(args.Query())
	fmt.Printf("%#v\n", args.Values())
	// Output:
	// ($7,$8),($9,$10)
	// []interface {}{"joe", 88, "sue", 77}
}

func TestPostgresMultiInsert(t *testing.T) {
	insert := PostgresMultiInsert(0, 3)
	test.Equals(t, true, insert.IsEmpty())
	test.Equals(t, 0, insert.NumColumns())
	test.Equals(t, "", insert.Query())
	test.Equals(t, 0, len(insert.Values()))

	insert.Append("test", 123)
	test.Equals(t, false, insert.IsEmpty())
	test.Equals(t, 2, insert.NumColumns())
	test.Equals(t, 1, insert.NumRows())
	test.Equals(t, "($3,$4)", insert.Query())
	test.Equals(t, 2, len(insert.Values()))
	test.Equals(t, "test", insert.Values()[0])
	test.Equals(t, 123, insert.Values()[1])

	insert.Append("foo", 444)
	test.Equals(t, false, insert.IsEmpty())
	test.Equals(t, 2, insert.NumColumns())
	test.Equals(t, 2, insert.NumRows())
	test.Equals(t, "($3,$4),($5,$6)", insert.Query())
	test.Equals(t, 4, len(insert.Values()))
	test.Equals(t, "foo", insert.Values()[2])
	test.Equals(t, 444, insert.Values()[3])
}

func ExamplePostgresVarArgs() {
	args := PostgresVarArgs(3)
	args.Append("name", "joe")
	args.Append("age", 62)
	fmt.Println(args.ColumnsForUpdate())
	fmt.Printf("%#v\n", args.Values())
	// Output:
	// name=$3,age=$4
	// []interface {}{"joe", 62}
}

func TestPostgresVarArgs(t *testing.T) {
	args := PostgresVarArgs(4)
	test.Equals(t, true, args.IsEmpty())
	test.Equals(t, "", args.ColumnsForUpdate())
	test.Equals(t, 0, len(args.Values()))

	args.Append("col1", 123)
	test.Equals(t, false, args.IsEmpty())
	vals := args.Values()
	test.Equals(t, "col1=$4", args.ColumnsForUpdate())
	test.Equals(t, 1, len(vals))
	test.Equals(t, 123, vals[0])

	args.Append("col2", "foo")
	vals = args.Values()
	test.Equals(t, "col1=$4,col2=$5", args.ColumnsForUpdate())
	test.Equals(t, 2, len(vals))
	test.Equals(t, 123, vals[0])
	test.Equals(t, "foo", vals[1])
}

func TestPostgresArgs(t *testing.T) {
	test.Equals(t, "", PostgresArgs(1, 0))
	test.Equals(t, "$1", PostgresArgs(1, 1))
	test.Equals(t, "$1,$2,$3", PostgresArgs(1, 3))
	test.Equals(t, "$9,$10,$11", PostgresArgs(9, 3))
}
