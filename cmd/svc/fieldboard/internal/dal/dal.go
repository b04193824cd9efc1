// Package dal provides read-only access to the contele schema for the
// dashboard and the assistant.
package dal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/tecnotop/backend/libs/dbutil"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/libs/golog"
)

// Filters narrows every dashboard query. Zero-value date bounds mean
// no bound on that side. Empty slices mean "all".
type Filters struct {
	StartDate time.Time
	EndDate   time.Time
	Sellers   []string
	Companies []string
	VisitType string
}

// Summary is the headline block at the top of the dashboard.
type Summary struct {
	TotalVisits    int64      `json:"totalVisits"`
	TotalSellers   int64      `json:"totalSellers"`
	TotalCompanies int64      `json:"totalCompanies"`
	FirstActivity  *time.Time `json:"firstActivity,omitempty"`
	LastActivity   *time.Time `json:"lastActivity,omitempty"`
}

// SellerStat is one row of the per-seller rollup.
type SellerStat struct {
	Name   string `json:"name"`
	Visits int64  `json:"visits"`
}

// ClientStat is one row of the per-client rollup.
type ClientStat struct {
	POI    string `json:"poi"`
	Visits int64  `json:"visits"`
}

// MonthBucket is one point of the monthly timeline.
type MonthBucket struct {
	Month  time.Time `json:"month"`
	Visits int64     `json:"visits"`
}

// TypeCount is one slice of the visit type distribution.
type TypeCount struct {
	Type   string `json:"type"`
	Visits int64  `json:"visits"`
}

// Visit is one row of the visit browser. FinishedAt is only populated
// when the deployed schema carries the finished_at column.
type Visit struct {
	TaskID       string     `json:"taskId"`
	OSNumber     string     `json:"osNumber"`
	AssigneeName string     `json:"assigneeName"`
	POI          string     `json:"poi"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

// VisitAnswer is one answered form question for a visit.
type VisitAnswer struct {
	FormTitle     string `json:"formTitle"`
	QuestionTitle string `json:"questionTitle"`
	Answer        string `json:"answer"`
}

// FilterOptions backs the dashboard filter dropdowns.
type FilterOptions struct {
	Sellers   []string `json:"sellers"`
	Companies []string `json:"companies"`
}

type DAL interface {
	Summary(ctx context.Context, f *Filters) (*Summary, error)
	SellerRollup(ctx context.Context, f *Filters, limit int) ([]*SellerStat, error)
	ClientRollup(ctx context.Context, f *Filters, limit int) ([]*ClientStat, error)
	MonthlyTimeline(ctx context.Context, f *Filters) ([]*MonthBucket, error)
	VisitTypeDistribution(ctx context.Context, f *Filters) ([]*TypeCount, error)
	Visits(ctx context.Context, f *Filters, limit int, withFinished bool) ([]*Visit, error)
	VisitAnswers(ctx context.Context, taskID string) ([]*VisitAnswer, error)
	FilterOptions(ctx context.Context) (*FilterOptions, error)
	ColumnExists(ctx context.Context, schema, table, column string) (bool, error)
	Ping(ctx context.Context) error
	Query(ctx context.Context, query string) ([]string, [][]interface{}, error)
}

// visitTypeViews maps the dashboard's visit type selector onto the
// per-objective views the sync service maintains.
var visitTypeViews = map[string]string{
	"Prospecção":                 "vw_prospeccao",
	"Relacionamento":             "vw_relacionamento",
	"Levantamento de Necessidade": "vw_levantamento_de_necessidade",
	"Visita Técnica":             "vw_visita_tecnica",
}

type dal struct {
	db *sql.DB
}

func New(db *sql.DB) DAL {
	return &dal{db: db}
}

// filterClause renders f into a WHERE fragment over contele_os aliased
// as o, appending bind values to args. The visit type selector narrows
// by task_id membership in the matching objective view.
func filterClause(f *Filters, args []interface{}) (string, []interface{}) {
	conds := []string{"TRUE"}
	if f != nil {
		if !f.StartDate.IsZero() {
			args = append(args, f.StartDate)
			conds = append(conds, fmt.Sprintf("o.created_at >= $%d", len(args)))
		}
		if !f.EndDate.IsZero() {
			args = append(args, f.EndDate.AddDate(0, 0, 1))
			conds = append(conds, fmt.Sprintf("o.created_at < $%d", len(args)))
		}
		if len(f.Sellers) != 0 {
			conds = append(conds, fmt.Sprintf("o.assignee_name IN (%s)",
				dbutil.PostgresArgs(len(args)+1, len(f.Sellers))))
			args = dbutil.AppendStringsToInterfaceSlice(args, f.Sellers)
		}
		if len(f.Companies) != 0 {
			conds = append(conds, fmt.Sprintf("o.poi IN (%s)",
				dbutil.PostgresArgs(len(args)+1, len(f.Companies))))
			args = dbutil.AppendStringsToInterfaceSlice(args, f.Companies)
		}
		if view, ok := visitTypeViews[f.VisitType]; ok {
			conds = append(conds, fmt.Sprintf(
				"o.task_id IN (SELECT task_id FROM contele.%s)", pq.QuoteIdentifier(view)))
		}
	}
	return strings.Join(conds, " AND "), args
}

func (d *dal) Summary(ctx context.Context, f *Filters) (*Summary, error) {
	where, args := filterClause(f, nil)
	row := d.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT o.task_id),
			COUNT(DISTINCT o.assignee_name),
			COUNT(DISTINCT o.poi),
			MIN(o.created_at),
			MAX(o.created_at)
		FROM contele.contele_os o
		WHERE `+where, args...)
	var s Summary
	var first, last pq.NullTime
	if err := row.Scan(&s.TotalVisits, &s.TotalSellers, &s.TotalCompanies, &first, &last); err != nil {
		return nil, errors.Trace(err)
	}
	if first.Valid {
		s.FirstActivity = &first.Time
	}
	if last.Valid {
		s.LastActivity = &last.Time
	}
	return &s, nil
}

func (d *dal) SellerRollup(ctx context.Context, f *Filters, limit int) ([]*SellerStat, error) {
	where, args := filterClause(f, nil)
	args = append(args, limit)
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT o.assignee_name, COUNT(DISTINCT o.task_id) AS visits
		FROM contele.contele_os o
		WHERE %s AND o.assignee_name IS NOT NULL AND o.assignee_name <> ''
		GROUP BY o.assignee_name
		ORDER BY visits DESC, o.assignee_name
		LIMIT $%d`, where, len(args)), args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var stats []*SellerStat
	for rows.Next() {
		s := &SellerStat{}
		if err := rows.Scan(&s.Name, &s.Visits); err != nil {
			return nil, errors.Trace(err)
		}
		stats = append(stats, s)
	}
	return stats, errors.Trace(rows.Err())
}

func (d *dal) ClientRollup(ctx context.Context, f *Filters, limit int) ([]*ClientStat, error) {
	where, args := filterClause(f, nil)
	args = append(args, limit)
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT o.poi, COUNT(DISTINCT o.task_id) AS visits
		FROM contele.contele_os o
		WHERE %s AND o.poi IS NOT NULL AND o.poi <> ''
		GROUP BY o.poi
		ORDER BY visits DESC, o.poi
		LIMIT $%d`, where, len(args)), args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var stats []*ClientStat
	for rows.Next() {
		s := &ClientStat{}
		if err := rows.Scan(&s.POI, &s.Visits); err != nil {
			return nil, errors.Trace(err)
		}
		stats = append(stats, s)
	}
	return stats, errors.Trace(rows.Err())
}

func (d *dal) MonthlyTimeline(ctx context.Context, f *Filters) ([]*MonthBucket, error) {
	where, args := filterClause(f, nil)
	rows, err := d.db.QueryContext(ctx, `
		SELECT date_trunc('month', o.created_at) AS month, COUNT(DISTINCT o.task_id)
		FROM contele.contele_os o
		WHERE `+where+`
		GROUP BY month
		ORDER BY month`, args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var buckets []*MonthBucket
	for rows.Next() {
		b := &MonthBucket{}
		if err := rows.Scan(&b.Month, &b.Visits); err != nil {
			return nil, errors.Trace(err)
		}
		buckets = append(buckets, b)
	}
	return buckets, errors.Trace(rows.Err())
}

func (d *dal) VisitTypeDistribution(ctx context.Context, f *Filters) ([]*TypeCount, error) {
	where, args := filterClause(f, nil)
	// Each objective view holds the task ids of visits with that
	// objective; everything outside the union has no objective answer.
	var unions []string
	for typ, view := range visitTypeViews {
		unions = append(unions, fmt.Sprintf(
			"SELECT %s AS type, task_id FROM contele.%s",
			pq.QuoteLiteral(typ), pq.QuoteIdentifier(view)))
	}
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		WITH typed AS (%s)
		SELECT COALESCE(t.type, 'Sem objetivo informado') AS type,
			COUNT(DISTINCT o.task_id)
		FROM contele.contele_os o
		LEFT JOIN typed t ON t.task_id = o.task_id
		WHERE %s
		GROUP BY 1
		ORDER BY 2 DESC`, strings.Join(unions, " UNION ALL "), where), args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var counts []*TypeCount
	for rows.Next() {
		c := &TypeCount{}
		if err := rows.Scan(&c.Type, &c.Visits); err != nil {
			return nil, errors.Trace(err)
		}
		counts = append(counts, c)
	}
	return counts, errors.Trace(rows.Err())
}

// Visits lists the most recent visits matching f. withFinished selects
// finished_at, which older schemas bootstrapped before the column was
// added do not have; callers probe with ColumnExists.
func (d *dal) Visits(ctx context.Context, f *Filters, limit int, withFinished bool) ([]*Visit, error) {
	finishedCol := "NULL"
	if withFinished {
		finishedCol = "o.finished_at"
	}
	where, args := filterClause(f, nil)
	args = append(args, limit)
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT o.task_id, COALESCE(o.os, ''), COALESCE(o.assignee_name, ''),
			COALESCE(o.poi, ''), COALESCE(o.status, ''), o.created_at, %s
		FROM contele.contele_os o
		WHERE %s
		ORDER BY o.created_at DESC
		LIMIT $%d`, finishedCol, where, len(args)), args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var visits []*Visit
	for rows.Next() {
		v := &Visit{}
		var finished pq.NullTime
		if err := rows.Scan(&v.TaskID, &v.OSNumber, &v.AssigneeName, &v.POI, &v.Status, &v.CreatedAt, &finished); err != nil {
			return nil, errors.Trace(err)
		}
		if finished.Valid {
			v.FinishedAt = &finished.Time
		}
		visits = append(visits, v)
	}
	return visits, errors.Trace(rows.Err())
}

func (d *dal) VisitAnswers(ctx context.Context, taskID string) ([]*VisitAnswer, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT COALESCE(form_title, ''), COALESCE(question_title, ''), COALESCE(answer_human, '')
		FROM contele.contele_answers
		WHERE task_id = $1
		ORDER BY form_title, question_title`, taskID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var answers []*VisitAnswer
	for rows.Next() {
		a := &VisitAnswer{}
		if err := rows.Scan(&a.FormTitle, &a.QuestionTitle, &a.Answer); err != nil {
			return nil, errors.Trace(err)
		}
		answers = append(answers, a)
	}
	return answers, errors.Trace(rows.Err())
}

func (d *dal) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	opts := &FilterOptions{}
	rows, err := d.db.QueryContext(ctx, `
		SELECT DISTINCT assignee_name FROM contele.contele_os
		WHERE assignee_name IS NOT NULL AND assignee_name <> ''
		ORDER BY assignee_name`)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Trace(err)
		}
		opts.Sellers = append(opts.Sellers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	rows, err = d.db.QueryContext(ctx, `
		SELECT DISTINCT poi FROM contele.contele_os
		WHERE poi IS NOT NULL AND poi <> ''
		ORDER BY poi`)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Trace(err)
		}
		opts.Companies = append(opts.Companies, s)
	}
	return opts, errors.Trace(rows.Err())
}

func (d *dal) ColumnExists(ctx context.Context, schema, table, column string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx, `
		SELECT 1 FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2 AND column_name = $3
		LIMIT 1`, schema, table, column).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Trace(err)
	}
	return true, nil
}

func (d *dal) Ping(ctx context.Context) error {
	var one int
	return errors.Trace(d.db.QueryRowContext(ctx, "SELECT 1").Scan(&one))
}

// Query runs an already validated read-only statement and returns the
// column names and rows with driver byte slices decoded to strings.
func (d *dal) Query(ctx context.Context, query string) ([]string, [][]interface{}, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	var out [][]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errors.Trace(err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Trace(err)
	}

	golog.Context(
		"query", query,
		"rows", len(out),
		"durationMS", time.Since(start).Nanoseconds()/1e6,
	).Infof("fieldboard: query executed")
	return cols, out, nil
}
