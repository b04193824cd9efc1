package sync

import (
	"context"
	"testing"

	"github.com/samuel/go-metrics/metrics"
	"github.com/tecnotop/backend/cmd/svc/contelesync/internal/contele"
	"github.com/tecnotop/backend/cmd/svc/contelesync/internal/dal"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/test"
)

type fakeTasksClient struct {
	tasks []*contele.Task
	err   error
}

func (f *fakeTasksClient) Tasks(ctx context.Context, since, to, timezone string, fn func(*contele.Task) error) error {
	if f.err != nil {
		return f.err
	}
	for _, t := range f.tasks {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

type fakeFormsClient struct {
	forms map[string]*contele.FormsResponse
	errs  map[string]error
}

func (f *fakeFormsClient) ListFormsByTask(ctx context.Context, taskID string) (*contele.FormsResponse, error) {
	if err := f.errs[taskID]; err != nil {
		return nil, err
	}
	if res := f.forms[taskID]; res != nil {
		return res, nil
	}
	return &contele.FormsResponse{}, nil
}

type fakeDAL struct {
	bootstrapped  bool
	rebuilt       int
	tasksAll      []*dal.TaskRow
	withObjective map[string]bool
	answersAll    []*dal.AnswerRow
	tasks         []*dal.TaskRow
	answers       []*dal.AnswerRow
}

func (f *fakeDAL) Bootstrap(ctx context.Context) error {
	f.bootstrapped = true
	return nil
}

func (f *fakeDAL) RebuildObjectiveViews(ctx context.Context, views []dal.ObjectiveView) error {
	f.rebuilt++
	return nil
}

func (f *fakeDAL) UpsertTasksAll(ctx context.Context, rows []*dal.TaskRow, withObjective map[string]bool) (int, error) {
	f.tasksAll = rows
	f.withObjective = withObjective
	return len(rows), nil
}

func (f *fakeDAL) UpsertAnswersAll(ctx context.Context, rows []*dal.AnswerRow) (int, error) {
	f.answersAll = rows
	return len(rows), nil
}

func (f *fakeDAL) UpsertTasks(ctx context.Context, rows []*dal.TaskRow) (int, error) {
	f.tasks = rows
	return len(rows), nil
}

func (f *fakeDAL) UpsertAnswers(ctx context.Context, rows []*dal.AnswerRow) (int, error) {
	f.answers = rows
	return len(rows), nil
}

func visitForm(objective string) *contele.FormsResponse {
	return &contele.FormsResponse{
		Forms: []*contele.Form{
			{
				Template: &contele.Template{
					Title: "Relatório de Visita Padrão",
					Segments: []*contele.Segment{
						{ID: "q1", Title: "Qual objetivo da visita?", Options: []*contele.Option{
							{ID: "opt1", Label: "Prospecção"},
							{ID: "opt2", Label: "Relacionamento"},
						}},
						{ID: "q2", Title: "Observações"},
					},
				},
				Answers: []*contele.Answer{
					{FormQuestionID: "q1", Answer: objective, CreatedAt: "2025-02-01T13:00:00Z"},
					{FormQuestionID: "q2", Answer: "tudo certo", CreatedAt: "2025-02-01T13:01:00Z"},
				},
				Users: []*contele.User{{ID: float64(9), Name: "Maria"}},
			},
		},
	}
}

func TestSyncPipeline(t *testing.T) {
	tasks := &fakeTasksClient{tasks: []*contele.Task{
		{TaskID: "t1", OS: "100", POI: "ACME", CreatedAt: "2025-02-01T12:00:00Z", UpdatedAt: "2025-02-01T12:00:00Z"},
		{TaskID: "t2", OS: "101", POI: "Beta", AssigneeName: "João", CreatedAt: "2025-02-02T12:00:00Z", UpdatedAt: "2025-02-02T12:00:00Z"},
	}}
	forms := &fakeFormsClient{forms: map[string]*contele.FormsResponse{
		"t1": visitForm("opt1"),
		// t2 answered with an empty objective, so it only lands in history.
		"t2": visitForm(""),
	}}
	fdal := &fakeDAL{}

	s := New(tasks, forms, fdal, Config{Since: "2025-01-01", To: "2025-12-31", Timezone: "America/Sao_Paulo"}, metrics.NewRegistry())
	test.OK(t, s.Sync(context.Background()))

	test.Assert(t, fdal.bootstrapped, "expected bootstrap")
	test.Equals(t, 2, fdal.rebuilt)

	// every task lands in history, only t1 in the filtered tables
	test.Equals(t, 2, len(fdal.tasksAll))
	test.Equals(t, map[string]bool{"t1": true}, fdal.withObjective)
	test.Equals(t, 1, len(fdal.tasks))
	test.Equals(t, "t1", fdal.tasks[0].TaskID)
	test.Equals(t, 4, len(fdal.answersAll))
	test.Equals(t, 2, len(fdal.answers))

	// option answer was humanized, raw preserved
	test.Equals(t, "Prospecção", fdal.answers[0].AnswerHuman)
	test.Equals(t, "opt1", fdal.answers[0].AnswerRaw)
	test.Equals(t, "Qual objetivo da visita?", fdal.answers[0].QuestionTitle)

	// assignee backfilled from the form's users
	test.Equals(t, "Maria", fdal.tasks[0].AssigneeName)
	test.Equals(t, "9", fdal.tasks[0].AssigneeID)
}

func TestSyncSkipsOtherForms(t *testing.T) {
	form := visitForm("opt1")
	form.Forms[0].Template.Title = "Checklist de Frota"
	tasks := &fakeTasksClient{tasks: []*contele.Task{{TaskID: "t1", UpdatedAt: "2025-02-01T12:00:00Z"}}}
	forms := &fakeFormsClient{forms: map[string]*contele.FormsResponse{"t1": form}}
	fdal := &fakeDAL{}

	s := New(tasks, forms, fdal, Config{}, metrics.NewRegistry())
	test.OK(t, s.Sync(context.Background()))

	test.Equals(t, 1, len(fdal.tasksAll))
	test.Equals(t, 0, len(fdal.answersAll))
	test.Equals(t, 0, len(fdal.tasks))
}

func TestSyncKeepsTaskOnFormsError(t *testing.T) {
	tasks := &fakeTasksClient{tasks: []*contele.Task{{TaskID: "t1", UpdatedAt: "2025-02-01T12:00:00Z"}}}
	forms := &fakeFormsClient{errs: map[string]error{"t1": errors.New("boom")}}
	fdal := &fakeDAL{}

	s := New(tasks, forms, fdal, Config{}, metrics.NewRegistry())
	test.OK(t, s.Sync(context.Background()))

	test.Equals(t, 1, len(fdal.tasksAll))
	test.Equals(t, 0, len(fdal.tasks))
}

func TestSyncPermissionDenied(t *testing.T) {
	tasks := &fakeTasksClient{err: contele.ErrPermissionDenied}
	fdal := &fakeDAL{}

	s := New(tasks, &fakeFormsClient{}, fdal, Config{}, metrics.NewRegistry())
	err := s.Sync(context.Background())
	test.Assert(t, errors.Is(err, contele.ErrPermissionDenied), "expected permission denied, got %v", err)
	test.Equals(t, 0, len(fdal.tasksAll))
}
