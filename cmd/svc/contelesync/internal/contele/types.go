package contele

// Task is a normalized work order from the V2 tasks endpoint. Timestamps are
// kept as the raw ISO strings the API returned.
type Task struct {
	TaskID       string
	OS           string
	POI          string
	Title        string
	Status       string
	AssigneeName string
	AssigneeID   string
	CreatedAt    string
	FinishedAt   string
	UpdatedAt    string
}

// FormsResponse is the response of the forms list endpoint.
type FormsResponse struct {
	Forms []*Form `json:"forms"`
}

// Form is a filled-in form linked to a task.
type Form struct {
	Template *Template                `json:"template"`
	Answers  []*Answer                `json:"answers"`
	Users    []*User                  `json:"users"`
	Tasks    []map[string]interface{} `json:"tasks"`
	POIs     []*POI                   `json:"pois"`
}

// Template describes the form's questions.
type Template struct {
	Title    string     `json:"title"`
	Name     string     `json:"name"`
	Segments []*Segment `json:"segments"`
}

// Segment is a single question of a form template.
type Segment struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Options []*Option `json:"options"`
}

// Option is a selectable choice of a question.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Answer is a single answer of a filled-in form.
type Answer struct {
	FormQuestionID string      `json:"form_question_id"`
	QuestionID     string      `json:"question_id"`
	Answer         interface{} `json:"answer"`
	CreatedAt      string      `json:"created_at"`
}

// User is a user attached to a form.
type User struct {
	ID    interface{} `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
}

// POI is a point of interest (client site) attached to a form.
type POI struct {
	Name string `json:"name"`
}

// QID returns the question ID the answer belongs to, preferring the
// form-scoped ID.
func (a *Answer) QID() string {
	if a.FormQuestionID != "" {
		return a.FormQuestionID
	}
	return a.QuestionID
}
