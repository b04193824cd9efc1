package assistant

import (
	"strings"
	"testing"

	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/test"
)

const testYear = 2026

func TestValidateAndFixStripsFences(t *testing.T) {
	sql, err := ValidateAndFix("```sql\nSELECT os FROM contele.contele_os WHERE os = '10' LIMIT 10\n```", testYear)
	test.OK(t, err)
	test.Equals(t, "SELECT os FROM contele.contele_os WHERE os = '10' LIMIT 10", sql)
}

func TestValidateAndFixFirstStatementOnly(t *testing.T) {
	sql, err := ValidateAndFix("SELECT os FROM contele.contele_os WHERE os = '10' LIMIT 5; SELECT 2", testYear)
	test.OK(t, err)
	test.Equals(t, "SELECT os FROM contele.contele_os WHERE os = '10' LIMIT 5", sql)
}

func TestValidateAndFixDistinctTaskID(t *testing.T) {
	sql, err := ValidateAndFix(
		"SELECT COUNT(*) FROM contele.vw_todas_os_respostas WHERE poi = 'ACME' LIMIT 100", testYear)
	test.OK(t, err)
	test.Equals(t, true, strings.Contains(sql, "COUNT(DISTINCT task_id)"))
	test.Equals(t, false, strings.Contains(sql, "COUNT(*)"))

	// other relations keep COUNT(*)
	sql, err = ValidateAndFix(
		"SELECT COUNT(*) FROM contele.contele_os WHERE poi = 'ACME' LIMIT 100", testYear)
	test.OK(t, err)
	test.Equals(t, true, strings.Contains(sql, "COUNT(*)"))
}

func TestValidateAndFixRequiresSelect(t *testing.T) {
	_, err := ValidateAndFix("EXPLAIN SELECT 1", testYear)
	test.Equals(t, true, errors.Is(err, ErrNotSelect))

	// WITH is allowed
	_, err = ValidateAndFix(
		"WITH v AS (SELECT task_id FROM contele.contele_os WHERE poi = 'ACME') SELECT COUNT(*) FROM v LIMIT 10", testYear)
	test.OK(t, err)
}

func TestValidateAndFixBlockedCommands(t *testing.T) {
	// trailing statements after ; are discarded before the check
	sql, err := ValidateAndFix("SELECT os FROM contele.contele_os WHERE os = '1' LIMIT 5; DROP TABLE contele.contele_os", testYear)
	test.OK(t, err)
	test.Equals(t, false, strings.Contains(sql, "DROP"))

	_, err = ValidateAndFix("WITH d AS (SELECT 1) SELECT * FROM d WHERE EXISTS (SELECT 1) AND 'x' = 'DROP'", testYear)
	test.Equals(t, true, errors.Is(err, ErrBlockedCommand))

	_, err = ValidateAndFix("SELECT 1 WHERE 2 IN (SELECT 2) -- UPDATE contele.contele_os", testYear)
	test.Equals(t, true, errors.Is(err, ErrBlockedCommand))
}

func TestValidateAndFixYearBounds(t *testing.T) {
	_, err := ValidateAndFix(
		"SELECT COUNT(*) FROM contele.contele_os WHERE created_at >= '2023-01-01' LIMIT 10", testYear)
	test.Equals(t, true, errors.Is(err, ErrBadYear))

	_, err = ValidateAndFix(
		"SELECT COUNT(*) FROM contele.contele_os WHERE created_at >= '2030-01-01' LIMIT 10", testYear)
	test.Equals(t, true, errors.Is(err, ErrBadYear))

	_, err = ValidateAndFix(
		"SELECT COUNT(*) FROM contele.contele_os WHERE created_at >= '2025-01-01' AND created_at < '2026-01-01' LIMIT 10", testYear)
	test.OK(t, err)
}

func TestValidateAndFixTableAllowlist(t *testing.T) {
	_, err := ValidateAndFix("SELECT * FROM public.users LIMIT 10", testYear)
	test.Equals(t, true, errors.Is(err, ErrForbiddenTable))

	_, err = ValidateAndFix("SELECT * FROM contele.vw_inexistente LIMIT 10", testYear)
	test.Equals(t, true, errors.Is(err, ErrForbiddenTable))

	// CTE names have no schema qualifier and are skipped
	sql := `WITH visitas_periodo AS (
		SELECT poi, assignee_name FROM contele.contele_os WHERE created_at >= '2026-01-01'
	)
	SELECT assignee_name, COUNT(*) FROM visitas_periodo GROUP BY assignee_name LIMIT 100`
	_, err = ValidateAndFix(sql, testYear)
	test.OK(t, err)

	// joins are checked too
	_, err = ValidateAndFix(
		"SELECT o.os FROM contele.contele_os o JOIN secret.codes c ON c.task_id = o.task_id LIMIT 10", testYear)
	test.Equals(t, true, errors.Is(err, ErrForbiddenTable))
}

func TestValidateAndFixForbiddenColumns(t *testing.T) {
	_, err := ValidateAndFix(
		"SELECT data_criacao_pendencia FROM contele.vw_pendencias LIMIT 10", testYear)
	test.Equals(t, true, errors.Is(err, ErrForbiddenColumn))

	_, err = ValidateAndFix(
		"SELECT DESCRICAO_PENDENCIA FROM contele.vw_pendencias LIMIT 10", testYear)
	test.Equals(t, true, errors.Is(err, ErrForbiddenColumn))
}

func TestValidateAndFixLimit(t *testing.T) {
	sql, err := ValidateAndFix("SELECT os FROM contele.contele_os WHERE os = '10'", testYear)
	test.OK(t, err)
	test.Equals(t, true, strings.HasSuffix(sql, "LIMIT 100"))

	sql, err = ValidateAndFix("SELECT os FROM contele.contele_os WHERE os = '10' LIMIT 5000", testYear)
	test.OK(t, err)
	test.Equals(t, true, strings.Contains(sql, "LIMIT 1000"))
	test.Equals(t, false, strings.Contains(sql, "5000"))

	sql, err = ValidateAndFix("SELECT os FROM contele.contele_os WHERE os = '10' LIMIT 500", testYear)
	test.OK(t, err)
	test.Equals(t, true, strings.Contains(sql, "LIMIT 500"))
}

func TestValidateAndFixTooGeneric(t *testing.T) {
	_, err := ValidateAndFix("SELECT * FROM contele.contele_os LIMIT 1", testYear)
	test.Equals(t, true, errors.Is(err, ErrTooGeneric))

	// a WHERE or ORDER BY makes it specific enough
	_, err = ValidateAndFix("SELECT * FROM contele.contele_os ORDER BY created_at DESC LIMIT 1", testYear)
	test.OK(t, err)

	_, err = ValidateAndFix("SELECT * FROM contele.contele_os WHERE os = '5078' LIMIT 1", testYear)
	test.OK(t, err)
}
