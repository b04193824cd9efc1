package dal

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/libs/golog"
)

// maxPivotColumns caps the width of the generated pivot views.
const maxPivotColumns = 100

// Slug normalizes a question title into a column name. Titles whose slug
// exceeds 50 characters get a 40 character prefix plus a short hash of the
// original title so distinct long titles stay distinct.
func Slug(title string) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevUnderscore = false
		} else if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	slug := strings.Trim(b.String(), "_")
	if len(slug) <= 50 {
		return slug
	}
	sum := md5.Sum([]byte(title))
	return slug[:40] + "_" + hex.EncodeToString(sum[:])[:8]
}

// pivotColumns assigns a unique column slug to each question title. Titles
// must be sorted; colliding slugs are disambiguated with a numeric suffix.
func pivotColumns(titles []string) []pivotColumn {
	seen := map[string]int{}
	cols := make([]pivotColumn, 0, len(titles))
	for _, title := range titles {
		if len(cols) >= maxPivotColumns {
			break
		}
		slug := Slug(title)
		seen[slug]++
		if n := seen[slug]; n > 1 {
			slug = fmt.Sprintf("%s_%d", slug, n)
		}
		cols = append(cols, pivotColumn{Title: title, Slug: slug})
	}
	return cols
}

type pivotColumn struct {
	Title string
	Slug  string
}

// buildPivotViewSQL returns the CREATE VIEW statement pivoting the answers of
// work orders whose objective answer starts with objective. With no titles the
// view degrades to the metadata columns only.
func buildPivotViewSQL(objective, viewName string, titles []string) string {
	pattern := pq.QuoteLiteral(objective + "%")
	name := "contele." + pq.QuoteIdentifier(viewName)

	cols := pivotColumns(titles)
	if len(cols) == 0 {
		return fmt.Sprintf(`
CREATE VIEW %s AS
SELECT
  a.task_id,
  MAX(a.os) AS os,
  MAX(a.poi) AS poi,
  MAX(o.assignee_name) AS assignee_name,
  MAX(o.status) AS status,
  MAX(o.created_at) AS os_created_at,
  MAX(o.finished_at) AS os_finished_at
FROM contele.contele_answers a
LEFT JOIN contele.contele_os o ON a.task_id = o.task_id
WHERE EXISTS (
  SELECT 1 FROM contele.contele_answers ai
  WHERE ai.task_id = a.task_id
    AND ai.question_title ILIKE 'Qual objetivo%%'
    AND ai.answer_human ILIKE %s
)
GROUP BY a.task_id`, name, pattern)
	}

	colSQL := make([]string, len(cols))
	for i, c := range cols {
		colSQL[i] = fmt.Sprintf("MAX(a.answer_human) FILTER (WHERE a.question_title = %s) AS %s",
			pq.QuoteLiteral(c.Title), pq.QuoteIdentifier(c.Slug))
	}
	return fmt.Sprintf(`
CREATE VIEW %s AS
WITH os_com_obj AS (
  SELECT DISTINCT a.task_id
  FROM contele.contele_answers a
  WHERE a.question_title ILIKE 'Qual objetivo%%'
    AND a.answer_human ILIKE %s
)
SELECT
  a.task_id,
  MAX(a.os) AS os,
  MAX(a.poi) AS poi,
  MAX(o.assignee_name) AS assignee_name,
  MAX(o.status) AS status,
  MAX(o.created_at) AS os_created_at,
  MAX(o.finished_at) AS os_finished_at,
  %s
FROM contele.contele_answers a
JOIN os_com_obj obj ON a.task_id = obj.task_id
LEFT JOIN contele.contele_os o ON a.task_id = o.task_id
GROUP BY a.task_id`, name, pattern, strings.Join(colSQL, ",\n  "))
}

// RebuildObjectiveViews drops and recreates the pivot views. The column list
// follows the question titles currently loaded, so this runs after every sync
// to pick up new questions. A failure on one view does not stop the others.
func (d *dal) RebuildObjectiveViews(ctx context.Context, views []ObjectiveView) error {
	var lastErr error
	for _, v := range views {
		titles, err := d.questionTitlesForObjective(ctx, v.Objective)
		if err != nil {
			golog.Errorf("Failed to list question titles for view %s: %s", v.ViewName, err)
			lastErr = err
			continue
		}
		if _, err := d.db.ExecContext(ctx, fmt.Sprintf("DROP VIEW IF EXISTS contele.%s CASCADE", pq.QuoteIdentifier(v.ViewName))); err != nil {
			golog.Errorf("Failed to drop view %s: %s", v.ViewName, err)
			lastErr = err
			continue
		}
		if _, err := d.db.ExecContext(ctx, buildPivotViewSQL(v.Objective, v.ViewName, titles)); err != nil {
			golog.Errorf("Failed to create view %s: %s", v.ViewName, err)
			lastErr = err
			continue
		}
		golog.Infof("Rebuilt view %s for objective '%s' (%d pivot columns)", v.ViewName, v.Objective, len(titles))
	}
	return errors.Trace(lastErr)
}

func (d *dal) questionTitlesForObjective(ctx context.Context, objective string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT DISTINCT a.question_title
		FROM contele.contele_answers a
		WHERE EXISTS (
		  SELECT 1 FROM contele.contele_answers ai
		  WHERE ai.task_id = a.task_id
		    AND ai.question_title ILIKE 'Qual objetivo%'
		    AND ai.answer_human ILIKE $1
		)
		AND a.question_title IS NOT NULL
		AND a.question_title NOT ILIKE 'Qual objetivo%'
		ORDER BY a.question_title`, objective+"%")
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, errors.Trace(err)
		}
		titles = append(titles, t)
	}
	return titles, errors.Trace(rows.Err())
}
