package assistant

import (
	"fmt"
	"strings"
	"time"
)

// Persona is the assistant's fixed identity used in every prompt.
type Persona struct {
	Name      string
	Role      string
	Company   string
	Tone      string
	Specialty string
}

// DefaultPersona mirrors how the sales team knows the assistant.
var DefaultPersona = Persona{
	Name:    "John",
	Role:    "Analista de Dados Sênior",
	Company: "TecnoTop Automação",
	Tone:    "Profissional com senso de humor aguçado, direto e orientado a dados",
	Specialty: "Análise de visitas comerciais e formulários Contele, portfólio " +
		"Festo, Wago, Hengst e Bosch Rexroth na Região do Rio de Janeiro",
}

// DashboardFilters carries the dashboard's active filters into the
// prompt as the default period when the question names none.
type DashboardFilters struct {
	StartDate time.Time
	EndDate   time.Time
	Sellers   string
	Companies string
	VisitType string
}

// schemaGuide is the fixed part of the SQL generation prompt: which
// relations exist, what one row means in each, and the counting rules
// the model must not break.
const schemaGuide = `
ESQUEMA contele (PostgreSQL). Tabelas e views disponíveis:

TABELAS BASE:
- contele.contele_os: 1 linha = 1 OS/visita com objetivo identificado.
  Colunas: task_id (PK), os, assignee_id, assignee_name, poi, status,
  created_at, updated_at, ingested_at.
- contele.contele_os_all: todas as OS, com flag has_objetivo.
- contele.contele_answers: respostas dos formulários filtrados.
  Colunas: task_id, form_title, question_id, question_title,
  answer_human (texto legível), answer_raw, created_at.
- contele.contele_answers_all: todas as respostas, sem filtro.

VIEWS:
- contele.vw_todas_os_respostas: OS + respostas (1 linha = 1 resposta;
  colunas os_created_at, assignee_name, poi, form_title, question_title,
  answer_human). PRINCIPAL para detalhes de uma OS.
- contele.vw_prospeccao / vw_relacionamento /
  vw_levantamento_de_necessidade / vw_visita_tecnica: pivôs por objetivo
  (1 linha = 1 OS daquele objetivo, respostas em colunas).
- contele.vw_resumo_vendedores, contele.vw_resumo_clientes: rollups.
- contele.vw_timeline_atividades: atividades dos últimos 6 meses.
- contele.vw_visitas_status: 1 linha = 1 visita com objetivo e status.
- contele.vw_pendencias: pendências por visita (use os_created_at para
  datas; NÃO existem data_criacao_pendencia nem descricao_pendencia).
- contele.vw_resumo_pendencias_vendedor, vw_resumo_pendencias_cliente.
- contele.vw_portfolio_clientes: uso de Festo/Bosch Rexroth/Hengst/Wago
  por cliente (colunas usa_festo, usa_bosch_rexroth, usa_hengst,
  usa_wago).

REGRAS CRÍTICAS:
1. 1 OS = 1 task_id. Para contar visitas/OS prefira contele.contele_os
   com COUNT(*). Se usar vw_todas_os_respostas, use OBRIGATORIAMENTE
   COUNT(DISTINCT task_id).
2. LIMIT obrigatório e <= 1000.
3. Comparação de texto: ILIKE '%termo%'.
4. Datas de período: campo created_at em contele_os e vw_visitas_status,
   os_created_at nas views de respostas e pendências.
5. Somente SELECT ou WITH. Nunca DDL/DML.

EXEMPLOS:
-- Visitas por vendedor no período
SELECT assignee_name, COUNT(*) AS total_visitas
FROM contele.contele_os
WHERE created_at >= '2026-01-01' AND created_at < '2026-02-01'
GROUP BY assignee_name ORDER BY total_visitas DESC LIMIT 100;

-- Resumo de uma OS
SELECT question_title, answer_human
FROM contele.vw_todas_os_respostas
WHERE os = '5078' LIMIT 200;

-- Concorrentes mais mencionados
SELECT LOWER(TRIM(answer_human)) AS concorrente,
  COUNT(DISTINCT poi) AS qtd_clientes,
  COUNT(DISTINCT task_id) AS qtd_visitas
FROM contele.vw_todas_os_respostas
WHERE question_title ILIKE '%concorrente%'
  AND answer_human IS NOT NULL AND answer_human <> ''
GROUP BY 1 ORDER BY qtd_visitas DESC LIMIT 100;

-- Clientes que usam o portfólio
SELECT poi, usa_festo, usa_bosch_rexroth, usa_hengst, usa_wago
FROM contele.vw_portfolio_clientes
WHERE usa_festo OR usa_bosch_rexroth OR usa_hengst OR usa_wago
ORDER BY poi LIMIT 200;
`

func temporalRules(now time.Time) string {
	year, month := now.Year(), int(now.Month())
	return fmt.Sprintf(`
REGRAS TEMPORAIS:
- "mês de 10": intervalo [%d-10-01, %d-11-01)
- "este mês": [%d-%02d-01, primeiro dia do próximo mês)
- "mês passado": o mês anterior ao atual
- Não usar anos anteriores a 2024 sem menção explícita
`, year, year, year, month)
}

// filtersBlock renders the dashboard filters as the default period.
// The question's own dates always win over the dashboard's.
func filtersBlock(f *DashboardFilters) string {
	if f == nil || f.StartDate.IsZero() || f.EndDate.IsZero() {
		return `
Não há período padrão vindo do dashboard.
- Sempre infira o período a partir da pergunta do usuário.
`
	}
	sellers := f.Sellers
	if sellers == "" {
		sellers = "Todos"
	}
	companies := f.Companies
	if companies == "" {
		companies = "Todas"
	}
	visitType := f.VisitType
	if visitType == "" {
		visitType = "Visão Geral"
	}
	start := f.StartDate.Format("2006-01-02")
	endExcl := f.EndDate.AddDate(0, 0, 1).Format("2006-01-02")
	return fmt.Sprintf(`
FILTROS DO DASHBOARD (padrão quando o usuário NÃO especificar período):
- Período padrão: de '%s' (inclusive) até '%s' (exclusivo).
  Em contele.contele_os: created_at >= '%s' AND created_at < '%s'.
  Em views com os_created_at: os_created_at >= '%s' AND os_created_at < '%s'.
- Vendedores selecionados: %s
- Empresas selecionadas: %s
- Tipo de visita selecionado: %s

PRIORIDADE DE PERÍODO:
1. Se a pergunta contém datas, meses, anos ou expressões como "mês
   passado": use APENAS o período da pergunta e ignore o padrão acima.
2. Se a pergunta não menciona período: aplique o período padrão.
`, start, endExcl, start, endExcl, start, endExcl, sellers, companies, visitType)
}

// generationPrompt is the system prompt for the NL to SQL step.
func (a *Assistant) generationPrompt(now time.Time, filters *DashboardFilters) string {
	return fmt.Sprintf(`Você é %s, %s da %s.
Converta perguntas em SQL PostgreSQL válido.
%s
%s
%s
INSTRUÇÕES GERAIS:
- Retornar SOMENTE SQL (sem markdown, sem explicação).
- Se a pergunta for ambígua ("Qual é o número dessa OS?"), pegue a
  última OS: SELECT os, assignee_name, poi, status, created_at
  FROM contele.contele_os ORDER BY created_at DESC LIMIT 1.
- O histórico de conversa serve APENAS para entender o contexto, nunca
  como filtro automático de datas, vendedores ou clientes.`,
		a.persona.Name, a.persona.Role, a.persona.Company,
		schemaGuide, temporalRules(now), filtersBlock(filters))
}

// formatHistory compacts recent conversation for prompt context: at
// most historyMaxMessages entries and historyMaxChars characters,
// newest kept.
const (
	historyMaxMessages = 12
	historyMaxChars    = 4000
)

// Message is one conversation turn.
type Message struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

func (a *Assistant) formatHistory(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > historyMaxMessages {
		history = history[len(history)-historyMaxMessages:]
	}
	var lines []string
	for _, m := range history {
		prefix := "Usuário"
		if m.Role == "assistant" {
			prefix = a.persona.Name
		}
		lines = append(lines, prefix+": "+m.Text)
	}
	out := strings.Join(lines, "\n")
	if len(out) > historyMaxChars {
		out = out[len(out)-historyMaxChars:]
	}
	return out
}
