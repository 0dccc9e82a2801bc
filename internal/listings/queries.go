package listings

const listingColumns = `id, seller_id, title, description, model, condition, price_cents, images, warranty_info, status, created_at, updated_at`

const (
	qFindByID = `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	qInsert = `INSERT INTO listings (id, seller_id, title, description, model, condition, price_cents, images, warranty_info, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'ACTIVE')
RETURNING ` + listingColumns

	qUpdate = `UPDATE listings SET
	title = COALESCE($2, title),
	description = COALESCE($3, description),
	model = COALESCE($4, model),
	condition = COALESCE($5, condition),
	price_cents = COALESCE($6, price_cents),
	images = COALESCE($7, images),
	warranty_info = COALESCE($8, warranty_info),
	updated_at = NOW()
WHERE id = $1
RETURNING ` + listingColumns

	qUpdateStatus = `UPDATE listings SET status = $2, updated_at = NOW() WHERE id = $1`

	qHideActiveBySeller = `UPDATE listings SET status = 'HIDDEN', updated_at = NOW() WHERE seller_id = $1 AND status = 'ACTIVE'`
)
