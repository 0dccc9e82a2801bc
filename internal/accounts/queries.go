package accounts

const accountColumns = `id, email, name, password_hash, role, status, suspended_reason, suspended_until, created_at, updated_at`

const (
	qFindByID    = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	qFindByEmail = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	qFindActor   = `SELECT id, role, status FROM accounts WHERE id = $1`

	qInsert = `INSERT INTO accounts (id, email, name, password_hash, role, status, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), 'USER', 'ACTIVE', NOW(), NOW())
RETURNING ` + accountColumns

	qUpdateStatus = `UPDATE accounts
SET status = $2, suspended_reason = NULLIF($3, ''), suspended_until = $4, updated_at = NOW()
WHERE id = $1`
	qUpdateRole     = `UPDATE accounts SET role = $2, updated_at = NOW() WHERE id = $1`
	qUpdateName     = `UPDATE accounts SET name = $2, updated_at = NOW() WHERE id = $1`
	qUpdatePassword = `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	qExport = `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at`

	qExpiredSuspensions = `SELECT ` + accountColumns + ` FROM accounts
WHERE status = 'SUSPENDED' AND suspended_until IS NOT NULL AND suspended_until <= $1
ORDER BY suspended_until`

	qCountByRoleStatus = `SELECT role, status, COUNT(*) FROM accounts GROUP BY role, status`
)
