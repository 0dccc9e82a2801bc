package sellers

const applicationColumns = `a.id, a.user_id, u.name, u.email, a.business_name, a.business_description, a.status,
	a.rejection_reason, COALESCE(a.reviewed_by::text, ''), a.reviewed_at, a.created_at`

const profileColumns = `user_id, business_name, description, logo_url, return_policy,
	COALESCE(verified_by::text, ''), verified_at, created_at, updated_at`

const (
	qFindApplication = `SELECT ` + applicationColumns + `
FROM seller_applications a JOIN accounts u ON u.id = a.user_id
WHERE a.id = $1`

	qLatestApplication = `SELECT ` + applicationColumns + `
FROM seller_applications a JOIN accounts u ON u.id = a.user_id
WHERE a.user_id = $1
ORDER BY a.created_at DESC
LIMIT 1`

	qHasPending = `SELECT EXISTS (SELECT 1 FROM seller_applications WHERE user_id = $1 AND status = 'PENDING')`

	qInsertApplication = `INSERT INTO seller_applications (id, user_id, business_name, business_description, status)
VALUES ($1, $2, $3, $4, 'PENDING')`

	qListApplications = `SELECT ` + applicationColumns + `
FROM seller_applications a JOIN accounts u ON u.id = a.user_id
WHERE a.status = $1
ORDER BY a.created_at DESC
LIMIT $2 OFFSET $3`

	qCountApplications = `SELECT COUNT(*) FROM seller_applications WHERE status = $1`

	qMarkReviewed = `UPDATE seller_applications
SET status = $2, reviewed_by = $3, reviewed_at = NOW(), rejection_reason = $4
WHERE id = $1 AND status = 'PENDING'`

	qPromoteAccount = `UPDATE accounts SET role = 'SELLER', updated_at = NOW() WHERE id = $1`

	qInsertProfile = `INSERT INTO seller_profiles (user_id, business_name, verified_by, verified_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (user_id) DO UPDATE SET business_name = EXCLUDED.business_name, verified_by = EXCLUDED.verified_by, verified_at = NOW()`

	qFindProfile = `SELECT ` + profileColumns + ` FROM seller_profiles WHERE user_id = $1`

	qUpdateProfile = `UPDATE seller_profiles SET
	business_name = COALESCE($2, business_name),
	description = COALESCE($3, description),
	logo_url = COALESCE($4, logo_url),
	return_policy = COALESCE($5, return_policy),
	updated_at = NOW()
WHERE user_id = $1
RETURNING ` + profileColumns
)
