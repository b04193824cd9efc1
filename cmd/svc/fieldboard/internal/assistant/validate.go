package assistant

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tecnotop/backend/libs/errors"
)

// allowedTables is every relation the generated SQL may read. Names
// without a schema qualifier are treated as CTEs and not checked here.
var allowedTables = map[string]bool{
	"contele.contele_os":                 true,
	"contele.contele_os_all":             true,
	"contele.contele_answers":            true,
	"contele.contele_answers_all":        true,
	"contele.vw_todas_os_respostas":      true,
	"contele.vw_prospeccao":              true,
	"contele.vw_relacionamento":          true,
	"contele.vw_levantamento_de_necessidade": true,
	"contele.vw_visita_tecnica":          true,
	"contele.vw_resumo_vendedores":       true,
	"contele.vw_resumo_clientes":         true,
	"contele.vw_timeline_atividades":     true,
	"contele.vw_pendencias":              true,
	"contele.vw_resumo_pendencias_vendedor": true,
	"contele.vw_resumo_pendencias_cliente":  true,
	"contele.vw_visitas_status":          true,
	"contele.vw_portfolio_clientes":      true,
}

var blockedStatements = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "TRUNCATE",
	"ALTER", "CREATE", "GRANT", "REVOKE",
}

// Columns the model keeps hallucinating on vw_pendencias.
var forbiddenColumns = []string{
	"data_criacao_pendencia",
	"descricao_pendencia",
}

var (
	ErrNotSelect       = errors.New("sql must start with SELECT or WITH")
	ErrBlockedCommand  = errors.New("sql uses a blocked command")
	ErrBadYear         = errors.New("sql references a year outside the data range")
	ErrForbiddenTable  = errors.New("sql references a table outside the allowlist")
	ErrForbiddenColumn = errors.New("sql references columns that do not exist in vw_pendencias; use os_created_at")
	ErrTooGeneric      = errors.New("sql is too generic; name an OS, period or objective")
)

var (
	fromRE        = regexp.MustCompile(`(?i)\bFROM\s+([a-zA-Z0-9_.]+)`)
	joinRE        = regexp.MustCompile(`(?i)\bJOIN\s+([a-zA-Z0-9_.]+)`)
	yearRE        = regexp.MustCompile(`\b(20\d{2})[-/]`)
	countStarRE   = regexp.MustCompile(`(?i)COUNT\s*\(\s*\*\s*\)`)
	limitRE       = regexp.MustCompile(`(?i)LIMIT\s+(\d+)`)
	tooGenericRE  = regexp.MustCompile(`(?i)SELECT\s+.+\s+FROM\s+contele\.contele_os\s+LIMIT\s+1\b`)
	blockedREs    = make(map[string]*regexp.Regexp, len(blockedStatements))
)

func init() {
	for _, cmd := range blockedStatements {
		blockedREs[cmd] = regexp.MustCompile(`\b` + cmd + `\b`)
	}
}

// stripFences removes markdown code fences the model wraps SQL in and
// keeps only the first statement.
func stripFences(sqlText string) string {
	s := strings.TrimSpace(sqlText)
	s = strings.ReplaceAll(s, "```sql", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

// forceDistinctTaskID rewrites COUNT(*) to COUNT(DISTINCT task_id)
// when the query reads vw_todas_os_respostas, where one visit spans
// many answer rows.
func forceDistinctTaskID(sqlText string) string {
	if !strings.Contains(sqlText, "contele.vw_todas_os_respostas") {
		return sqlText
	}
	return countStarRE.ReplaceAllString(sqlText, "COUNT(DISTINCT task_id)")
}

func referencedTables(sqlText string) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, re := range []*regexp.Regexp{fromRE, joinRE} {
		for _, m := range re.FindAllStringSubmatch(sqlText, -1) {
			name := strings.TrimSpace(m[1])
			if !seen[name] {
				seen[name] = true
				tables = append(tables, name)
			}
		}
	}
	return tables
}

func hasForbiddenColumns(sqlText string) bool {
	lower := strings.ToLower(sqlText)
	for _, col := range forbiddenColumns {
		if strings.Contains(lower, col) {
			return true
		}
	}
	return false
}

func isTooGeneric(sqlText string) bool {
	upper := strings.ToUpper(sqlText)
	return tooGenericRE.MatchString(sqlText) &&
		!strings.Contains(upper, "WHERE") &&
		!strings.Contains(upper, "ORDER BY")
}

// ValidateAndFix cleans up model-generated SQL and enforces the
// read-only guardrails. It returns the statement that is safe to run
// or an error naming the first rule it broke.
func ValidateAndFix(sqlText string, currentYear int) (string, error) {
	cleaned := stripFences(sqlText)
	cleaned = forceDistinctTaskID(cleaned)

	upper := strings.ToUpper(cleaned)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "", errors.Trace(ErrNotSelect)
	}

	for _, cmd := range blockedStatements {
		if blockedREs[cmd].MatchString(upper) {
			return "", errors.Annotatef(errors.Trace(ErrBlockedCommand), "command %s", cmd)
		}
	}

	for _, m := range yearRE.FindAllStringSubmatch(cleaned, -1) {
		year, _ := strconv.Atoi(m[1])
		if year < 2024 || year > currentYear {
			return "", errors.Annotatef(errors.Trace(ErrBadYear), "year %d", year)
		}
	}

	for _, table := range referencedTables(cleaned) {
		if !strings.Contains(table, ".") {
			// CTE or alias
			continue
		}
		if !allowedTables[table] {
			return "", errors.Annotatef(errors.Trace(ErrForbiddenTable), "table %s", table)
		}
	}

	if hasForbiddenColumns(cleaned) {
		return "", errors.Trace(ErrForbiddenColumn)
	}

	if !strings.Contains(strings.ToUpper(cleaned), "LIMIT") {
		cleaned += "\nLIMIT 100"
	} else if m := limitRE.FindStringSubmatch(cleaned); m != nil {
		if limit, _ := strconv.Atoi(m[1]); limit > 1000 {
			cleaned = limitRE.ReplaceAllString(cleaned, "LIMIT 1000")
		}
	}

	if isTooGeneric(cleaned) {
		return "", errors.Trace(ErrTooGeneric)
	}

	return cleaned, nil
}
