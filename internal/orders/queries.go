package orders

const orderColumns = `id, buyer_id, seller_id, listing_id, total_cents, status, shipping_address, notes,
	tracking_number, tracking_url, cancel_reason, refund_reason, created_at, updated_at`

const (
	qFindByID = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	qInsert = `INSERT INTO orders (id, buyer_id, seller_id, listing_id, total_cents, status, shipping_address, notes)
VALUES ($1, $2, $3, $4, $5, 'PENDING', $6, $7)
RETURNING ` + orderColumns

	qApplyChange = `UPDATE orders SET
	status = $2,
	tracking_number = COALESCE(NULLIF($3, ''), tracking_number),
	tracking_url = COALESCE(NULLIF($4, ''), tracking_url),
	cancel_reason = COALESCE(NULLIF($5, ''), cancel_reason),
	refund_reason = COALESCE(NULLIF($6, ''), refund_reason),
	updated_at = NOW()
WHERE id = $1`

	qHasDelivered = `SELECT EXISTS (SELECT 1 FROM orders WHERE buyer_id = $1 AND listing_id = $2 AND status = 'DELIVERED')`
)
