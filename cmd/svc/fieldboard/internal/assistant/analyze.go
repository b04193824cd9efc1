package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/libs/openai"
)

const previewRows = 50

// resultPayload is the structured view of a query result handed to
// the analysis completion. Numeric metrics are only extracted from
// single-row results so an aggregate like COUNT(*) is never confused
// with the number of rows returned.
type resultPayload struct {
	Columns        []string                 `json:"colunas"`
	TotalRows      int                      `json:"total_linhas"`
	NumericMetrics map[string]interface{}   `json:"metricas_numericas"`
	Preview        []map[string]interface{} `json:"preview_linhas"`
}

func buildResultPayload(cols []string, rows [][]interface{}) *resultPayload {
	p := &resultPayload{
		Columns:        cols,
		TotalRows:      len(rows),
		NumericMetrics: make(map[string]interface{}),
	}
	if len(rows) == 1 {
		for i, v := range rows[0] {
			if i >= len(cols) {
				break
			}
			switch v.(type) {
			case int, int32, int64, float32, float64:
				p.NumericMetrics[cols[i]] = v
			}
		}
	}
	n := len(rows)
	if n > previewRows {
		n = previewRows
	}
	for _, row := range rows[:n] {
		m := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		p.Preview = append(p.Preview, m)
	}
	return p
}

// analysisRules tells the model how to read the payload, in
// particular that total_linhas is not a visit count and how to treat
// "Abordagem sem sucesso" and missing objectives.
const analysisRules = `
REGRAS IMPORTANTES (NÚMEROS):
- Use SEMPRE os valores de metricas_numericas como base para
  contagens, somas e médias.
- total_linhas é apenas o número de linhas retornadas, NÃO o total de
  OS ou visitas.
- Quando não houver métricas numéricas, descreva o padrão das linhas
  do preview.
- Use o histórico apenas para coerência da narrativa, sem inventar
  números.

TRATAMENTO DE OBJETIVOS:
- Cada valor distinto de objetivo/objetivo_legenda é UM tipo de
  visita. "Abordagem sem sucesso" é um tipo específico (tentativa que
  não evoluiu), não um erro de categorização.
- Objetivo nulo ou vazio: descreva como "abordagens sem sucesso ou
  visitas sem objetivo definido", de forma neutra. Só trate como
  problema de preenchimento se a pergunta for sobre isso ou se a
  quantidade for claramente relevante.

Formate a resposta em:
1. Resumo direto, com números explícitos.
2. Principais insights (máx. 5).
3. Recomendações objetivas (se fizer sentido).
`

func (a *Assistant) analyze(ctx context.Context, question, sqlText string, cols []string, rows [][]interface{}, history []Message) (string, error) {
	payload := buildResultPayload(cols, rows)
	payloadJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", errors.Trace(err)
	}

	system := fmt.Sprintf("Você é %s, %s da %s.\nTom: %s.\n%s",
		a.persona.Name, a.persona.Role, a.persona.Company, a.persona.Tone, analysisRules)

	parts := []string{"Pergunta original do usuário:\n" + question}
	if h := a.formatHistory(history); h != "" {
		parts = append(parts, "Histórico recente da conversa (apenas coerência, não altere números):\n"+h)
	}
	parts = append(parts,
		"SQL executado:\n"+sqlText,
		"Resultados estruturados (JSON):\n"+string(payloadJSON),
		"Faça a análise seguindo as regras.")

	res, err := a.ai.ChatCompletion(ctx, &openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: strings.Join(parts, "\n\n")},
		},
		Temperature: analysisTemperature,
	})
	if err != nil {
		return "", errors.Annotate(errors.Trace(err), "analyzing results")
	}
	return strings.TrimSpace(res.Content()), nil
}
