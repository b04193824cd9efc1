package dal

// ddlBootstrap creates the schema, the load tables and the static summary
// views. The per objective pivot views are built separately since their
// column lists depend on the loaded data.
const ddlBootstrap = `
CREATE SCHEMA IF NOT EXISTS contele;

-- full history tables (every fetched work order)
CREATE TABLE IF NOT EXISTS contele.contele_os_all (
  task_id          text PRIMARY KEY,
  os               text,
  poi              text,
  title            text,
  status           text,
  assignee_name    text,
  assignee_id      text,
  created_at       timestamptz,
  finished_at      timestamptz,
  updated_at       timestamptz,
  ingested_at      timestamptz,
  updated_at_local timestamptz,
  has_objetivo     boolean DEFAULT false
);

CREATE TABLE IF NOT EXISTS contele.contele_answers_all (
  task_id        text NOT NULL,
  os             text,
  poi            text,
  form_title     text,
  question_id    text NOT NULL,
  question_title text,
  answer_human   text,
  answer_raw     text,
  created_at     timestamptz,
  ingested_at    timestamptz,
  PRIMARY KEY(task_id, question_id)
);

-- filtered tables (only work orders with a stated objective)
CREATE TABLE IF NOT EXISTS contele.contele_os (
  task_id          text PRIMARY KEY,
  os               text,
  poi              text,
  title            text,
  status           text,
  assignee_name    text,
  assignee_id      text,
  created_at       timestamptz,
  finished_at      timestamptz,
  updated_at       timestamptz,
  ingested_at      timestamptz,
  updated_at_local timestamptz
);

CREATE TABLE IF NOT EXISTS contele.contele_answers (
  task_id        text NOT NULL,
  os             text,
  poi            text,
  form_title     text,
  question_id    text NOT NULL,
  question_title text,
  answer_human   text,
  answer_raw     text,
  created_at     timestamptz,
  ingested_at    timestamptz,
  PRIMARY KEY(task_id, question_id)
);

-- normalized view of every work order with its answers
CREATE OR REPLACE VIEW contele.vw_todas_os_respostas AS
SELECT
  a.task_id,
  a.os,
  a.poi,
  a.form_title,
  a.question_title,
  a.answer_human,
  a.created_at,
  o.assignee_name,
  o.status,
  o.created_at AS os_created_at,
  o.finished_at AS os_finished_at
FROM contele.contele_answers a
LEFT JOIN contele.contele_os o ON a.task_id = o.task_id
ORDER BY a.task_id, a.question_title;

-- per seller rollup
CREATE OR REPLACE VIEW contele.vw_resumo_vendedores AS
WITH base AS (
  SELECT
    assignee_name,
    task_id,
    poi,
    status,
    created_at,
    title
  FROM contele.contele_os
  WHERE assignee_name IS NOT NULL
),
por_objetivo AS (
  SELECT
    task_id,
    MAX(CASE WHEN question_title ILIKE 'Qual objetivo%' THEN answer_human END) AS objetivo
  FROM contele.contele_answers
  WHERE question_title ILIKE 'Qual objetivo%'
  GROUP BY task_id
)
SELECT
  b.assignee_name,
  COUNT(DISTINCT b.task_id) AS total_os,
  COUNT(DISTINCT b.poi) AS total_clientes,
  COUNT(DISTINCT CASE WHEN b.status ILIKE '%conclu%' OR b.status ILIKE '%finaliz%' THEN b.task_id END) AS os_concluidas,
  COUNT(DISTINCT CASE WHEN b.status NOT ILIKE '%conclu%' AND b.status NOT ILIKE '%finaliz%' THEN b.task_id END) AS os_pendentes,
  MIN(b.created_at) AS primeira_visita,
  MAX(b.created_at) AS ultima_visita,
  COUNT(DISTINCT CASE WHEN po.objetivo ILIKE 'Prospec%' THEN b.task_id END) AS total_prospeccao,
  COUNT(DISTINCT CASE WHEN po.objetivo ILIKE 'Relacionamento%' THEN b.task_id END) AS total_relacionamento,
  COUNT(DISTINCT CASE WHEN po.objetivo ILIKE 'Levantamento%' THEN b.task_id END) AS total_levantamento,
  COUNT(DISTINCT CASE WHEN po.objetivo ILIKE 'Visita T%' THEN b.task_id END) AS total_visita_tecnica
FROM base b
LEFT JOIN por_objetivo po ON b.task_id = po.task_id
GROUP BY b.assignee_name
ORDER BY total_os DESC;

-- per client rollup
CREATE OR REPLACE VIEW contele.vw_resumo_clientes AS
WITH base AS (
  SELECT
    poi,
    task_id,
    assignee_name,
    status,
    created_at,
    title
  FROM contele.contele_os
  WHERE poi IS NOT NULL
),
por_objetivo AS (
  SELECT
    task_id,
    MAX(CASE WHEN question_title ILIKE 'Qual objetivo%' THEN answer_human END) AS objetivo
  FROM contele.contele_answers
  WHERE question_title ILIKE 'Qual objetivo%'
  GROUP BY task_id
)
SELECT
  b.poi,
  COUNT(DISTINCT b.task_id) AS total_visitas,
  COUNT(DISTINCT b.assignee_name) AS total_vendedores_distintos,
  MIN(b.created_at) AS primeira_visita,
  MAX(b.created_at) AS ultima_visita,
  ARRAY_AGG(DISTINCT b.assignee_name ORDER BY b.assignee_name) FILTER (WHERE b.assignee_name IS NOT NULL) AS vendedores,
  COUNT(DISTINCT CASE WHEN po.objetivo ILIKE 'Prospec%' THEN b.task_id END) AS visitas_prospeccao,
  COUNT(DISTINCT CASE WHEN po.objetivo ILIKE 'Relacionamento%' THEN b.task_id END) AS visitas_relacionamento,
  COUNT(DISTINCT CASE WHEN po.objetivo ILIKE 'Levantamento%' THEN b.task_id END) AS visitas_levantamento,
  COUNT(DISTINCT CASE WHEN po.objetivo ILIKE 'Visita T%' THEN b.task_id END) AS visitas_tecnicas
FROM base b
LEFT JOIN por_objetivo po ON b.task_id = po.task_id
GROUP BY b.poi
ORDER BY total_visitas DESC;

-- monthly activity timeline (last 6 months)
CREATE OR REPLACE VIEW contele.vw_timeline_atividades AS
SELECT
  DATE_TRUNC('month', o.created_at) AS mes,
  o.assignee_name,
  COUNT(DISTINCT o.task_id) AS total_visitas,
  COUNT(DISTINCT o.poi) AS clientes_visitados,
  COUNT(DISTINCT CASE WHEN o.status ILIKE '%conclu%' OR o.status ILIKE '%finaliz%' THEN o.task_id END) AS visitas_concluidas
FROM contele.contele_os o
WHERE o.created_at >= CURRENT_DATE - INTERVAL '6 months'
  AND o.assignee_name IS NOT NULL
GROUP BY DATE_TRUNC('month', o.created_at), o.assignee_name
ORDER BY mes DESC, total_visitas DESC;
`
