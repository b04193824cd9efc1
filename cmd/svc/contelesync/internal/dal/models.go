package dal

import "time"

// TaskRow is a work order ready for loading.
type TaskRow struct {
	TaskID       string
	OS           string
	POI          string
	Title        string
	Status       string
	AssigneeName string
	AssigneeID   string
	CreatedAt    time.Time
	FinishedAt   time.Time
	UpdatedAt    time.Time
}

// AnswerRow is a single form answer ready for loading.
type AnswerRow struct {
	TaskID        string
	OS            string
	POI           string
	FormTitle     string
	QuestionID    string
	QuestionTitle string
	AnswerHuman   string
	AnswerRaw     string
	CreatedAt     time.Time
}

// ObjectiveView names a pivot view and the visit objective prefix it covers.
type ObjectiveView struct {
	Objective string
	ViewName  string
}

// DefaultObjectiveViews are the standard pivot views rebuilt after every sync.
var DefaultObjectiveViews = []ObjectiveView{
	{Objective: "Prospecção", ViewName: "vw_prospeccao"},
	{Objective: "Relacionamento", ViewName: "vw_relacionamento"},
	{Objective: "Levantamento de Necessidade", ViewName: "vw_levantamento_de_necessidade"},
	{Objective: "Visita Técnica", ViewName: "vw_visita_tecnica"},
}
