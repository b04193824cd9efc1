package dal

import (
	"context"
	"database/sql"

	"github.com/tecnotop/backend/libs/clock"
	"github.com/tecnotop/backend/libs/dbutil"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/libs/golog"
)

// DAL represents the methods required to provide data access layer functionality
type DAL interface {
	Bootstrap(ctx context.Context) error
	RebuildObjectiveViews(ctx context.Context, views []ObjectiveView) error
	UpsertTasksAll(ctx context.Context, rows []*TaskRow, withObjective map[string]bool) (int, error)
	UpsertAnswersAll(ctx context.Context, rows []*AnswerRow) (int, error)
	UpsertTasks(ctx context.Context, rows []*TaskRow) (int, error)
	UpsertAnswers(ctx context.Context, rows []*AnswerRow) (int, error)
}

const (
	taskPageSize   = 1000
	answerPageSize = 2000
)

type dal struct {
	db  *sql.DB
	clk clock.Clock
}

// New returns an initialized instance of dal
func New(db *sql.DB, clk clock.Clock) DAL {
	return &dal{db: db, clk: clk}
}

// Bootstrap creates the schema, tables and static views when missing.
func (d *dal) Bootstrap(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, ddlBootstrap)
	return errors.Trace(err)
}

// execUpsert runs one upsert page. Upserts can deadlock against a
// concurrent objective view rebuild, which postgres reports as 40P01;
// those pages are retried. A unique violation means the page itself
// carried duplicate keys that dedup should have removed.
func (d *dal) execUpsert(ctx context.Context, query string, vals []interface{}) error {
	for attempt := 0; ; attempt++ {
		_, err := d.db.ExecContext(ctx, query, vals...)
		if err == nil {
			return nil
		}
		if dbutil.IsPQError(err, dbutil.PQDeadlockDetect) && attempt < 2 {
			golog.Warningf("Deadlock upserting page, retrying: %s", err)
			continue
		}
		if dbutil.IsUniqueViolation(err) {
			return errors.Annotate(errors.Trace(err), "duplicate key within one upsert page")
		}
		return errors.Trace(err)
	}
}

func (d *dal) UpsertTasksAll(ctx context.Context, rows []*TaskRow, withObjective map[string]bool) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	total := 0
	for _, page := range taskPages(rows, taskPageSize) {
		mi := dbutil.PostgresMultiInsert(len(page), 1)
		now := d.clk.Now()
		for _, r := range page {
			mi.Append(r.TaskID, r.OS, r.POI, r.Title, r.Status, r.AssigneeName, r.AssigneeID,
				r.CreatedAt, r.FinishedAt, r.UpdatedAt, now, now, withObjective[r.TaskID])
		}
		err := d.execUpsert(ctx, `
			INSERT INTO contele.contele_os_all (
			  task_id, os, poi, title, status, assignee_name, assignee_id,
			  created_at, finished_at, updated_at, ingested_at, updated_at_local, has_objetivo
			) VALUES `+mi.Query()+`
			ON CONFLICT (task_id) DO UPDATE SET
			  os=EXCLUDED.os, poi=EXCLUDED.poi, title=EXCLUDED.title, status=EXCLUDED.status,
			  assignee_name=EXCLUDED.assignee_name, assignee_id=EXCLUDED.assignee_id,
			  created_at=EXCLUDED.created_at, finished_at=EXCLUDED.finished_at,
			  updated_at=EXCLUDED.updated_at, updated_at_local=EXCLUDED.updated_at_local,
			  has_objetivo=EXCLUDED.has_objetivo`, mi.Values())
		if err != nil {
			return total, errors.Trace(err)
		}
		total += len(page)
	}
	golog.Infof("Upserted %d rows into contele_os_all", total)
	return total, nil
}

func (d *dal) UpsertTasks(ctx context.Context, rows []*TaskRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	total := 0
	for _, page := range taskPages(rows, taskPageSize) {
		mi := dbutil.PostgresMultiInsert(len(page), 1)
		now := d.clk.Now()
		for _, r := range page {
			mi.Append(r.TaskID, r.OS, r.POI, r.Title, r.Status, r.AssigneeName, r.AssigneeID,
				r.CreatedAt, r.FinishedAt, r.UpdatedAt, now, now)
		}
		err := d.execUpsert(ctx, `
			INSERT INTO contele.contele_os (
			  task_id, os, poi, title, status, assignee_name, assignee_id,
			  created_at, finished_at, updated_at, ingested_at, updated_at_local
			) VALUES `+mi.Query()+`
			ON CONFLICT (task_id) DO UPDATE SET
			  os=EXCLUDED.os, poi=EXCLUDED.poi, title=EXCLUDED.title, status=EXCLUDED.status,
			  assignee_name=EXCLUDED.assignee_name, assignee_id=EXCLUDED.assignee_id,
			  created_at=EXCLUDED.created_at, finished_at=EXCLUDED.finished_at,
			  updated_at=EXCLUDED.updated_at, updated_at_local=EXCLUDED.updated_at_local`, mi.Values())
		if err != nil {
			return total, errors.Trace(err)
		}
		total += len(page)
	}
	golog.Infof("Upserted %d rows into contele_os", total)
	return total, nil
}

func (d *dal) UpsertAnswersAll(ctx context.Context, rows []*AnswerRow) (int, error) {
	n, err := d.upsertAnswers(ctx, "contele.contele_answers_all", rows)
	if err != nil {
		return n, errors.Trace(err)
	}
	golog.Infof("Upserted %d rows into contele_answers_all", n)
	return n, nil
}

func (d *dal) UpsertAnswers(ctx context.Context, rows []*AnswerRow) (int, error) {
	n, err := d.upsertAnswers(ctx, "contele.contele_answers", rows)
	if err != nil {
		return n, errors.Trace(err)
	}
	golog.Infof("Upserted %d rows into contele_answers", n)
	return n, nil
}

func (d *dal) upsertAnswers(ctx context.Context, table string, rows []*AnswerRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	total := 0
	for _, page := range answerPages(rows, answerPageSize) {
		mi := dbutil.PostgresMultiInsert(len(page), 1)
		now := d.clk.Now()
		for _, r := range page {
			mi.Append(r.TaskID, r.OS, r.POI, r.FormTitle, r.QuestionID, r.QuestionTitle,
				r.AnswerHuman, r.AnswerRaw, r.CreatedAt, now)
		}
		err := d.execUpsert(ctx, `
			INSERT INTO `+table+` (
			  task_id, os, poi, form_title, question_id, question_title,
			  answer_human, answer_raw, created_at, ingested_at
			) VALUES `+mi.Query()+`
			ON CONFLICT (task_id, question_id) DO UPDATE SET
			  os=EXCLUDED.os, poi=EXCLUDED.poi, form_title=EXCLUDED.form_title,
			  question_title=EXCLUDED.question_title, answer_human=EXCLUDED.answer_human,
			  answer_raw=EXCLUDED.answer_raw, created_at=EXCLUDED.created_at`, mi.Values())
		if err != nil {
			return total, errors.Trace(err)
		}
		total += len(page)
	}
	return total, nil
}

func taskPages(rows []*TaskRow, size int) [][]*TaskRow {
	var pages [][]*TaskRow
	for len(rows) > size {
		pages = append(pages, rows[:size])
		rows = rows[size:]
	}
	return append(pages, rows)
}

func answerPages(rows []*AnswerRow, size int) [][]*AnswerRow {
	var pages [][]*AnswerRow
	for len(rows) > size {
		pages = append(pages, rows[:size])
		rows = rows[size:]
	}
	return append(pages, rows)
}
