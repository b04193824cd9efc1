package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/samuel/go-metrics/metrics"
	"github.com/tecnotop/backend/cmd/svc/contelesync/internal/contele"
	"github.com/tecnotop/backend/cmd/svc/contelesync/internal/dal"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/libs/golog"
)

// Config tunes a sync run.
type Config struct {
	Since    string
	To       string
	Timezone string
	// AllowedFormTitles restricts which forms feed the filtered tables.
	AllowedFormTitles map[string]bool
	ObjectiveViews    []dal.ObjectiveView
}

// Syncer pulls work orders and form answers from the Contele APIs and loads
// them into the warehouse.
type Syncer struct {
	tasks contele.TasksClient
	forms contele.FormsClient
	dl    dal.DAL
	cfg   Config

	statSyncSucceeded *metrics.Counter
	statSyncFailed    *metrics.Counter
	statFormsSkipped  *metrics.Counter
}

// New returns an initialized Syncer.
func New(tasks contele.TasksClient, forms contele.FormsClient, dl dal.DAL, cfg Config, metricsRegistry metrics.Registry) *Syncer {
	if len(cfg.AllowedFormTitles) == 0 {
		cfg.AllowedFormTitles = map[string]bool{"Relatório de Visita Padrão": true}
	}
	if len(cfg.ObjectiveViews) == 0 {
		cfg.ObjectiveViews = dal.DefaultObjectiveViews
	}
	s := &Syncer{
		tasks:             tasks,
		forms:             forms,
		dl:                dl,
		cfg:               cfg,
		statSyncSucceeded: metrics.NewCounter(),
		statSyncFailed:    metrics.NewCounter(),
		statFormsSkipped:  metrics.NewCounter(),
	}
	if metricsRegistry != nil {
		metricsRegistry.Add("sync/succeeded", s.statSyncSucceeded)
		metricsRegistry.Add("sync/failed", s.statSyncFailed)
		metricsRegistry.Add("forms/skipped", s.statFormsSkipped)
	}
	return s
}

// Sync runs a full extraction and load cycle.
func (s *Syncer) Sync(ctx context.Context) error {
	if err := s.sync(ctx); err != nil {
		s.statSyncFailed.Inc(1)
		return errors.Trace(err)
	}
	s.statSyncSucceeded.Inc(1)
	return nil
}

func (s *Syncer) sync(ctx context.Context) error {
	if err := s.dl.Bootstrap(ctx); err != nil {
		return errors.Trace(err)
	}
	if err := s.dl.RebuildObjectiveViews(ctx, s.cfg.ObjectiveViews); err != nil {
		golog.Warningf("Objective view rebuild before sync failed: %s", err)
	}
	golog.Infof("Sync period: %s to %s (tz %s)", s.cfg.Since, s.cfg.To, s.cfg.Timezone)

	var taskRows []*dal.TaskRow
	var answerRows []*dal.AnswerRow
	formsProcessed := 0
	formsSkipped := 0

	err := s.tasks.Tasks(ctx, s.cfg.Since, s.cfg.To, s.cfg.Timezone, func(t *contele.Task) error {
		row := taskRow(t)
		res, err := s.forms.ListFormsByTask(ctx, t.TaskID)
		if err != nil {
			golog.Warningf("Forms for task %s failed: %s", t.TaskID, err)
			taskRows = append(taskRows, row)
			return nil
		}

		backfillAssignee(row, res.Forms)
		taskRows = append(taskRows, row)

		for _, form := range res.Forms {
			optIndex, titleIndex, formTitle := contele.BuildOptionIndex(form)
			if !s.cfg.AllowedFormTitles[formTitle] {
				formsSkipped++
				s.statFormsSkipped.Inc(1)
				continue
			}
			formsProcessed++
			answerRows = append(answerRows, answerRowsFromForm(row, form, formTitle, optIndex, titleIndex)...)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, contele.ErrPermissionDenied) {
			return errors.Annotate(err, "task extraction rejected; check V2 credentials")
		}
		return errors.Trace(err)
	}
	golog.Infof("Forms processed: %d, skipped: %d", formsProcessed, formsSkipped)

	taskRows = DedupTasksLast(taskRows)
	answerRows = DedupAnswersLast(answerRows)

	withObjective := TasksWithObjective(answerRows)
	filteredTasks := FilterTasks(taskRows, withObjective)
	filteredAnswers := FilterAnswers(answerRows, withObjective)
	golog.Infof("Tasks: %d total, %d with objective, %d without",
		len(taskRows), len(filteredTasks), len(taskRows)-len(filteredTasks))

	if _, err := s.dl.UpsertTasksAll(ctx, taskRows, withObjective); err != nil {
		return errors.Trace(err)
	}
	if _, err := s.dl.UpsertAnswersAll(ctx, answerRows); err != nil {
		return errors.Trace(err)
	}
	if _, err := s.dl.UpsertTasks(ctx, filteredTasks); err != nil {
		return errors.Trace(err)
	}
	if _, err := s.dl.UpsertAnswers(ctx, filteredAnswers); err != nil {
		return errors.Trace(err)
	}

	// New questions may have appeared, refresh the pivot views.
	return errors.Trace(s.dl.RebuildObjectiveViews(ctx, s.cfg.ObjectiveViews))
}

func taskRow(t *contele.Task) *dal.TaskRow {
	return &dal.TaskRow{
		TaskID:       t.TaskID,
		OS:           t.OS,
		POI:          t.POI,
		Title:        t.Title,
		Status:       t.Status,
		AssigneeName: t.AssigneeName,
		AssigneeID:   t.AssigneeID,
		CreatedAt:    ParseTS(t.CreatedAt),
		FinishedAt:   ParseTS(t.FinishedAt),
		UpdatedAt:    ParseTS(t.UpdatedAt),
	}
}

// backfillAssignee fills the task's assignee from the form's users list, or
// failing that from the form's task metadata. Tasks that already carry an
// assignee are left alone.
func backfillAssignee(row *dal.TaskRow, forms []*contele.Form) {
	if row.AssigneeName != "" {
		return
	}
	for _, form := range forms {
		if len(form.Users) != 0 {
			u := form.Users[0]
			name := u.Name
			if name == "" {
				name = u.Email
			}
			if name != "" {
				row.AssigneeName = name
				if id := fmt.Sprintf("%v", u.ID); id != "" && id != "<nil>" {
					row.AssigneeID = id
				}
				golog.Debugf("Assignee for task %s taken from form users: %s", row.TaskID, name)
				return
			}
		}
		if len(form.Tasks) != 0 {
			switch assignee := form.Tasks[0]["assignee"].(type) {
			case map[string]interface{}:
				if name, _ := assignee["name"].(string); name != "" {
					row.AssigneeName = name
					if id := fmt.Sprintf("%v", assignee["id"]); id != "" && id != "<nil>" {
						row.AssigneeID = id
					}
					return
				}
			case string:
				if assignee != "" {
					row.AssigneeName = assignee
					return
				}
			}
		}
	}
}

func answerRowsFromForm(row *dal.TaskRow, form *contele.Form, formTitle string, optIndex contele.OptionIndex, titleIndex map[string]string) []*dal.AnswerRow {
	osNum := row.OS
	if len(form.Tasks) != 0 {
		if v, ok := form.Tasks[0]["os"]; ok {
			if s := strings.TrimSpace(fmt.Sprintf("%v", v)); s != "" && s != "<nil>" {
				osNum = s
			}
		}
	}
	poiName := row.POI
	if len(form.POIs) != 0 && form.POIs[0].Name != "" {
		poiName = form.POIs[0].Name
	}

	rows := make([]*dal.AnswerRow, 0, len(form.Answers))
	for _, ans := range form.Answers {
		qid := ans.QID()
		title, ok := titleIndex[qid]
		if !ok {
			title = fmt.Sprintf("(Pergunta %s)", qid)
		}
		rows = append(rows, &dal.AnswerRow{
			TaskID:        row.TaskID,
			OS:            osNum,
			POI:           poiName,
			FormTitle:     formTitle,
			QuestionID:    qid,
			QuestionTitle: title,
			AnswerHuman:   contele.HumanizeAnswer(qid, ans.Answer, optIndex),
			AnswerRaw:     contele.RawAnswerString(ans.Answer),
			CreatedAt:     ParseTS(ans.CreatedAt),
		})
	}
	return rows
}
