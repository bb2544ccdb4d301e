package repository

// Requêtes CQL du module crédits. Les tables sont créées par scripts/scylladb_init.cql.
const (
	packageColumns = `package_key, label, description, vip_credits, premium_credits, price,
		product_type, is_active, sort_order, tags, created_at, updated_at`

	qSelectPackages = `SELECT ` + packageColumns + ` FROM credit_packages`
	qSelectPackage  = `SELECT ` + packageColumns + ` FROM credit_packages WHERE package_key = ?`
	qUpsertPackage  = `INSERT INTO credit_packages (` + packageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	qDeletePackage  = `DELETE FROM credit_packages WHERE package_key = ?`

	couponColumns = `code, type, value, min_order_amount, max_discount, start_date, end_date, expires_at,
		is_active, is_locked, max_uses, times_used, description, created_by, created_at, updated_at`

	qSelectCoupons = `SELECT ` + couponColumns + ` FROM coupons`
	qSelectCoupon  = `SELECT ` + couponColumns + ` FROM coupons WHERE code = ?`
	qInsertCoupon  = `INSERT INTO coupons (` + couponColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`
	qUpdateCoupon  = `UPDATE coupons SET type = ?, value = ?, min_order_amount = ?, max_discount = ?, start_date = ?,
		end_date = ?, expires_at = ?, is_active = ?, is_locked = ?, max_uses = ?, description = ?, updated_at = ?
		WHERE code = ? IF EXISTS`
	qDeleteCoupon    = `DELETE FROM coupons WHERE code = ?`
	qSelectCouponUse = `SELECT times_used FROM coupons WHERE code = ?`
	qIncrementCoupon = `UPDATE coupons SET times_used = ?, updated_at = ? WHERE code = ? IF times_used = ?`

	orderColumns = `order_id, user_id, items, subtotal, coupon_code, coupon_discount, total_amount, status,
		payment_method, payos_order_code, gateway_ref, checkout_url, qr_code, payos_status, payos_raw,
		is_credits_applied, created_at, updated_at`

	qInsertOrder       = `INSERT INTO credit_orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`
	qInsertOrderCode   = `INSERT INTO credit_orders_by_code (payos_order_code, order_id) VALUES (?, ?) IF NOT EXISTS`
	qInsertOrderByUser = `INSERT INTO credit_orders_by_user (user_id, created_at, order_id) VALUES (?, ?, ?)`
	qSelectOrder       = `SELECT ` + orderColumns + ` FROM credit_orders WHERE order_id = ?`
	qSelectOrders      = `SELECT ` + orderColumns + ` FROM credit_orders`
	qSelectOrderByCode = `SELECT order_id FROM credit_orders_by_code WHERE payos_order_code = ?`
	qSelectUserOrders  = `SELECT order_id FROM credit_orders_by_user WHERE user_id = ?`

	qAttachCheckout = `UPDATE credit_orders SET gateway_ref = ?, checkout_url = ?, qr_code = ?, payos_status = ?,
		payos_raw = ?, updated_at = ? WHERE order_id = ? IF status = ?`
	qAttachCheckoutRefs = `UPDATE credit_orders SET gateway_ref = ?, checkout_url = ?, qr_code = ?
		WHERE order_id = ? IF EXISTS`
	qTransitionOrder = `UPDATE credit_orders SET status = ?, payos_status = ?, payos_raw = ?, updated_at = ?
		WHERE order_id = ? IF status = ?`
	qMarkCreditsApplied = `UPDATE credit_orders SET is_credits_applied = true, updated_at = ?
		WHERE order_id = ? IF status = ? AND is_credits_applied = false`

	qSelectUser   = `SELECT email, name, role, vip_credits, premium_credits FROM users WHERE user_id = ?`
	qSelectLedger = `SELECT vip_credits, premium_credits, credited_orders FROM users WHERE user_id = ?`
	qApplyCredits = `UPDATE users SET vip_credits = ?, premium_credits = ?, credited_orders = credited_orders + ?
		WHERE user_id = ? IF vip_credits = ? AND premium_credits = ? AND credited_orders = ?`

	auditColumns = `id, user_id, user_email, action, resource, resource_id, old_value, new_value,
		ip_address, user_agent, success, error_msg, timestamp, session_id`

	qInsertAuditLog = `INSERT INTO audit_logs (` + auditColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	qSelectAuditLog = `SELECT ` + auditColumns + ` FROM audit_logs`
)
