package dal

import (
	"testing"
	"time"

	"github.com/tecnotop/backend/test"
)

func TestFilterClause(t *testing.T) {
	where, args := filterClause(nil, nil)
	test.Equals(t, "TRUE", where)
	test.Equals(t, 0, len(args))

	f := &Filters{
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Sellers:   []string{"Maria", "José"},
		Companies: []string{"ACME"},
		VisitType: "Prospecção",
	}
	where, args = filterClause(f, nil)
	test.Equals(t, `TRUE AND o.created_at >= $1 AND o.created_at < $2 AND o.assignee_name IN ($3,$4) AND o.poi IN ($5) AND o.task_id IN (SELECT task_id FROM contele."vw_prospeccao")`, where)
	test.Equals(t, []interface{}{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		// The end bound is exclusive at the following midnight.
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		"Maria", "José", "ACME",
	}, args)

	// Unknown visit types do not narrow the query.
	where, args = filterClause(&Filters{VisitType: "Outro"}, nil)
	test.Equals(t, "TRUE", where)
	test.Equals(t, 0, len(args))
}
