// Package assistant implements the NL to SQL analyst that answers
// free-form questions about the contele schema.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/samuel/go-metrics/metrics"

	"github.com/tecnotop/backend/libs/clock"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/libs/golog"
	"github.com/tecnotop/backend/libs/openai"
)

const model = "gpt-4o-mini"

const (
	generationTemperature = 0.1
	analysisTemperature   = 0.6
	casualTemperature     = 0.9
)

// Executor runs validated read-only SQL and exposes the DB liveness
// probe. Satisfied by the fieldboard dal.
type Executor interface {
	Query(ctx context.Context, query string) ([]string, [][]interface{}, error)
	Ping(ctx context.Context) error
}

type Assistant struct {
	ai       openai.Client
	db       Executor
	clk      clock.Clock
	persona  Persona
	sessions *sessionStore

	statQuestions *metrics.Counter
	statRejected  *metrics.Counter
	statFailed    *metrics.Counter
}

func New(ai openai.Client, db Executor, clk clock.Clock, metricsRegistry metrics.Registry) *Assistant {
	a := &Assistant{
		ai:            ai,
		db:            db,
		clk:           clk,
		persona:       DefaultPersona,
		sessions:      newSessionStore(clk),
		statQuestions: metrics.NewCounter(),
		statRejected:  metrics.NewCounter(),
		statFailed:    metrics.NewCounter(),
	}
	if metricsRegistry != nil {
		metricsRegistry.Add("questions", a.statQuestions)
		metricsRegistry.Add("questions/rejected", a.statRejected)
		metricsRegistry.Add("questions/failed", a.statFailed)
	}
	return a
}

// Respond answers one message in a session. dashboardContext is an
// optional textual summary of the data currently on screen; filters
// become the default query period. The session's history is updated
// with both the question and the reply.
func (a *Assistant) Respond(ctx context.Context, sessionID, question, dashboardContext string, filters *DashboardFilters) (string, error) {
	a.statQuestions.Inc(1)

	history := a.sessions.history(sessionID)
	a.sessions.append(sessionID, Message{Role: "user", Text: question})

	var reply string
	var err error
	switch Classify(question) {
	case QuestionCasual:
		reply, err = a.casualReply(ctx, question, history)
	case QuestionMeta:
		reply = a.metaCard()
	default:
		reply, err = a.dataReply(ctx, question, dashboardContext, filters, history)
	}
	if err != nil {
		a.statFailed.Inc(1)
		return "", errors.Trace(err)
	}
	a.sessions.append(sessionID, Message{Role: "assistant", Text: reply})
	return reply, nil
}

func (a *Assistant) dataReply(ctx context.Context, question, dashboardContext string, filters *DashboardFilters, history []Message) (string, error) {
	rawSQL, err := a.generateSQL(ctx, question, dashboardContext, filters, history)
	if err != nil {
		return "", errors.Trace(err)
	}

	validated, err := ValidateAndFix(rawSQL, a.clk.Now().Year())
	if err != nil {
		a.statRejected.Inc(1)
		golog.Context("question", question, "sql", rawSQL).Warningf("fieldboard: generated sql rejected: %s", err)
		if errors.Is(err, ErrTooGeneric) {
			return "A pergunta ficou genérica demais. Especifique uma OS, um período ou um objetivo.", nil
		}
		return fmt.Sprintf("Não consegui montar uma consulta segura para essa pergunta (%s). Tente reformular.", err), nil
	}

	cols, rows, err := a.db.Query(ctx, validated)
	if err != nil {
		return "", errors.Annotate(errors.Trace(err), "running generated sql")
	}
	if len(rows) == 0 {
		return fmt.Sprintf("Nenhum resultado encontrado.\nQuery:\n```sql\n%s\n```", validated), nil
	}

	analysis, err := a.analyze(ctx, question, validated, cols, rows, history)
	if err != nil {
		return "", errors.Trace(err)
	}
	return fmt.Sprintf("%s\n\n---\n**Query executada:**\n```sql\n%s\n```\n**Linhas retornadas:** %d",
		analysis, validated, len(rows)), nil
}

func (a *Assistant) generateSQL(ctx context.Context, question, dashboardContext string, filters *DashboardFilters, history []Message) (string, error) {
	userContent := "Pergunta do usuário:\n" + question
	if h := a.formatHistory(history); h != "" {
		userContent += "\n\nHistórico recente da conversa (somente contexto; não use como filtro SQL):\n" + h
	}
	if dashboardContext != "" {
		if len(dashboardContext) > 2000 {
			dashboardContext = dashboardContext[:2000]
		}
		userContent += "\n\nContexto de resumo de dados (apenas referência):\n" + dashboardContext
	}

	res, err := a.ai.ChatCompletion(ctx, &openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.Message{
			{Role: "system", Content: a.generationPrompt(a.clk.Now(), filters)},
			{Role: "user", Content: userContent},
		},
		Temperature: generationTemperature,
	})
	if err != nil {
		return "", errors.Annotate(errors.Trace(err), "generating sql")
	}
	sql := strings.TrimSpace(res.Content())
	golog.Context("question", question, "sql", sql).Debugf("fieldboard: sql generated")
	return sql, nil
}

func (a *Assistant) casualReply(ctx context.Context, question string, history []Message) (string, error) {
	system := fmt.Sprintf(`Você é %s, %s da %s.
Tom: %s
Especialidade: %s
Conversa casual. Não mencione banco de dados ou SQL espontaneamente.
Use o histórico recente apenas para manter o fio da conversa.`,
		a.persona.Name, a.persona.Role, a.persona.Company, a.persona.Tone, a.persona.Specialty)

	userContent := question
	if h := a.formatHistory(history); h != "" {
		userContent = "Histórico recente da conversa:\n" + h + "\n\nMensagem atual do usuário:\n" + question
	}

	res, err := a.ai.ChatCompletion(ctx, &openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: userContent},
		},
		Temperature: casualTemperature,
	})
	if err != nil {
		return "", errors.Trace(err)
	}
	return strings.TrimSpace(res.Content()), nil
}

// metaCard is the fixed self-description shown for "who are you"
// style questions. No model call involved.
func (a *Assistant) metaCard() string {
	return fmt.Sprintf(`**Olá! Eu sou %s.**
Papel: %s na %s
Especialidade: %s
Estilo: %s
Capacidades:
- Analiso OS's, clientes, vendedores e objetivos
- Gero e valido SQL (somente leitura)
- Traço rankings, timelines e pendências
- Resumos detalhados de visitas
Exemplos:
- Quantas OS por objetivo?
- Resumo da OS 5078
- Pendências abertas
- Ranking de vendedores
- Clientes com mais visitas`,
		a.persona.Name, a.persona.Role, a.persona.Company, a.persona.Specialty, a.persona.Tone)
}
