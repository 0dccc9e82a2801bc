package reviews

const reviewColumns = `id, user_id, listing_id, rating, comment, is_visible, created_at, updated_at`

const (
	qFindByID = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	qInsert = `INSERT INTO reviews (id, user_id, listing_id, rating, comment)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + reviewColumns

	qUpdate = `UPDATE reviews SET
	rating = COALESCE($2, rating),
	comment = COALESCE($3, comment),
	updated_at = NOW()
WHERE id = $1
RETURNING ` + reviewColumns

	qHide = `UPDATE reviews SET is_visible = FALSE, updated_at = NOW() WHERE id = $1`

	qListVisible = `SELECT ` + reviewColumns + ` FROM reviews WHERE listing_id = $1 AND is_visible ORDER BY created_at DESC`
)
