package i18n

// translations maps notification key → language code → format string.
//
// Supported languages: en (English), vi (Vietnamese).
var translations = map[string]map[string]string{

	// ─── Withdrawal received ─────────────────────────────────────────────────
	"notification.withdrawal.created.title": {
		"en": "Withdrawal Requested",
		"vi": "Đã gửi yêu cầu rút tiền",
	},
	// %s = amount
	"notification.withdrawal.created.body": {
		"en": "We received your withdrawal of %s and are reviewing it.",
		"vi": "Chúng tôi đã nhận yêu cầu rút %s và đang xem xét.",
	},

	// ─── Delayed hold ────────────────────────────────────────────────────────
	"notification.withdrawal.delayed.title": {
		"en": "Withdrawal Scheduled",
		"vi": "Yêu cầu rút tiền đã được lên lịch",
	},
	// %s = amount, %s = release time
	"notification.withdrawal.delayed.body": {
		"en": "Your withdrawal of %s will be paid after %s.",
		"vi": "Khoản rút %s sẽ được chuyển sau %s.",
	},

	// ─── Manual review ───────────────────────────────────────────────────────
	"notification.withdrawal.review.title": {
		"en": "Withdrawal Under Review",
		"vi": "Yêu cầu rút tiền đang được duyệt",
	},
	// %s = amount
	"notification.withdrawal.review.body": {
		"en": "Your withdrawal of %s needs a manual check. We will update you soon.",
		"vi": "Khoản rút %s cần được kiểm tra thủ công. Chúng tôi sẽ sớm cập nhật.",
	},

	// ─── Approved ────────────────────────────────────────────────────────────
	"notification.withdrawal.approved.title": {
		"en": "Withdrawal Paid",
		"vi": "Đã chuyển tiền",
	},
	// %s = amount, %s = bank name
	"notification.withdrawal.approved.body": {
		"en": "%s has been sent to your %s account.",
		"vi": "%s đã được chuyển vào tài khoản %s của bạn.",
	},

	// ─── Rejected ────────────────────────────────────────────────────────────
	"notification.withdrawal.rejected.title": {
		"en": "Withdrawal Rejected",
		"vi": "Yêu cầu rút tiền bị từ chối",
	},
	// %s = amount, %s = reason
	"notification.withdrawal.rejected.body": {
		"en": "Your withdrawal of %s was rejected: %s. The funds are back in your wallet.",
		"vi": "Khoản rút %s đã bị từ chối: %s. Số tiền đã được hoàn lại vào ví.",
	},

	// ─── Cancelled ───────────────────────────────────────────────────────────
	"notification.withdrawal.cancelled.title": {
		"en": "Withdrawal Cancelled",
		"vi": "Đã hủy yêu cầu rút tiền",
	},
	// %s = amount
	"notification.withdrawal.cancelled.body": {
		"en": "Your withdrawal of %s was cancelled and the funds released.",
		"vi": "Khoản rút %s đã được hủy và số tiền đã được hoàn lại.",
	},
}
