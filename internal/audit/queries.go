package audit

const entryColumns = `a.id, a.actor_id, COALESCE(u.email, ''), a.actor_role, a.action, a.target_type, a.target_id, a.meta, a.occurred_at`

const filterClause = `
WHERE ($1 = '' OR a.action = $1)
  AND ($2 = '' OR a.target_type = $2)
  AND ($3 = '' OR a.actor_id = $3)
  AND ($4::timestamptz IS NULL OR a.occurred_at >= $4)
  AND ($5::timestamptz IS NULL OR a.occurred_at < $5)`

const qListEntries = `SELECT ` + entryColumns + `
FROM audit_logs a
LEFT JOIN accounts u ON u.id = a.actor_id` + filterClause + `
ORDER BY a.occurred_at DESC, a.id
LIMIT $6 OFFSET $7`

const qCountEntries = `SELECT COUNT(*) FROM audit_logs a` + filterClause

const qExportEntries = `SELECT ` + entryColumns + `
FROM audit_logs a
LEFT JOIN accounts u ON u.id = a.actor_id` + filterClause + `
ORDER BY a.occurred_at DESC, a.id
LIMIT $6`
