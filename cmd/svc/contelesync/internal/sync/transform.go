package sync

import (
	"strings"
	"time"

	"github.com/tecnotop/backend/cmd/svc/contelesync/internal/dal"
)

// epoch is the fallback for missing or malformed timestamps so ordering
// comparisons stay total.
var epoch = time.Unix(0, 0).UTC()

// ParseTS parses an ISO 8601 timestamp, tolerating a trailing Z and missing
// values. Anything unparseable maps to the epoch.
func ParseTS(s string) time.Time {
	if s == "" {
		return epoch
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return epoch
}

// DedupTasksLast keeps the most recently updated row per task ID. For equal
// timestamps the later row in the slice wins.
func DedupTasksLast(rows []*dal.TaskRow) []*dal.TaskRow {
	bucket := make(map[string]int, len(rows))
	out := make([]*dal.TaskRow, 0, len(rows))
	for _, r := range rows {
		if i, ok := bucket[r.TaskID]; ok {
			if !r.UpdatedAt.Before(out[i].UpdatedAt) {
				out[i] = r
			}
			continue
		}
		bucket[r.TaskID] = len(out)
		out = append(out, r)
	}
	return out
}

// DedupAnswersLast keeps the most recent row per (task, form, question) key.
// For equal timestamps the later row in the slice wins.
func DedupAnswersLast(rows []*dal.AnswerRow) []*dal.AnswerRow {
	type key struct {
		taskID    string
		formTitle string
		qid       string
	}
	bucket := make(map[key]int, len(rows))
	out := make([]*dal.AnswerRow, 0, len(rows))
	for _, r := range rows {
		k := key{r.TaskID, r.FormTitle, r.QuestionID}
		if i, ok := bucket[k]; ok {
			if !r.CreatedAt.Before(out[i].CreatedAt) {
				out[i] = r
			}
			continue
		}
		bucket[k] = len(out)
		out = append(out, r)
	}
	return out
}

// TasksWithObjective returns the IDs of tasks that answered an objective
// question ("Qual objetivo…") with a non-empty value.
func TasksWithObjective(answers []*dal.AnswerRow) map[string]bool {
	ids := make(map[string]bool)
	for _, a := range answers {
		question := strings.ToLower(a.QuestionTitle)
		if strings.Contains(question, "qual objetivo") && strings.TrimSpace(a.AnswerHuman) != "" {
			ids[a.TaskID] = true
		}
	}
	return ids
}

// FilterTasks returns the task rows whose IDs are in the set.
func FilterTasks(rows []*dal.TaskRow, ids map[string]bool) []*dal.TaskRow {
	out := make([]*dal.TaskRow, 0, len(rows))
	for _, r := range rows {
		if ids[r.TaskID] {
			out = append(out, r)
		}
	}
	return out
}

// FilterAnswers returns the answer rows whose task IDs are in the set.
func FilterAnswers(rows []*dal.AnswerRow, ids map[string]bool) []*dal.AnswerRow {
	out := make([]*dal.AnswerRow, 0, len(rows))
	for _, r := range rows {
		if ids[r.TaskID] {
			out = append(out, r)
		}
	}
	return out
}
