package i18n

var english = map[string]string{
	"SUCCESS":              "OK",
	"UNAUTHORIZED":         "Authentication required",
	"INVALID_CREDENTIALS":  "Invalid email or password",
	"ACCOUNT_LOCKED":       "Account temporarily locked after too many failed logins",
	"ACCOUNT_DISABLED":     "Account is disabled",
	"TOKEN_EXPIRED":        "Your session has expired, please sign in again",
	"INVALID_TOKEN":        "Invalid authentication token",
	"INVALID_TOKEN_TYPE":   "Wrong kind of token for this request",
	"TOKEN_REVOKED":        "This token has been revoked",
	"REFRESH_LIMIT":        "Session refresh limit reached, please sign in again",
	"FORBIDDEN":            "You do not have permission to do this",
	"INSUFFICIENT_SCOPE":   "Service token lacks the required scope",
	"SERVICE_UNAUTHORIZED": "Valid service token required",
	"TENANT_REQUIRED":      "Store could not be determined for this request",
	"TENANT_NOT_FOUND":     "Store not found",
	"TENANT_INACTIVE":      "This store is not active",
	"TENANT_MISMATCH":      "Token belongs to a different store",
	"NOT_FOUND":            "Resource not found",
	"ALREADY_EXISTS":       "Resource already exists",
	"CONCURRENCY_CONFLICT": "Resource was modified by someone else, please retry",
	"VALIDATION_ERROR":     "Some fields are invalid",
	"INVALID_INPUT":        "Invalid input",
	"BAD_REQUEST":          "Malformed request",
	"INVALID_STATE":        "This action is not allowed in the current state",
	"INSUFFICIENT_STOCK":   "Not enough stock for one or more items",
	"CART_EMPTY":           "Your cart is empty",
	"LICENSE_INVALID":      "Plugin license is missing or invalid",
	"PLUGIN_DISABLED":      "Plugin is not enabled for this store",
	"PAYLOAD_TOO_LARGE":    "Request body is too large",
	"RATE_LIMITED":         "Too many requests, please slow down",
	"INTERNAL_ERROR":       "Something went wrong on our side",
}

var simplifiedChinese = map[string]string{
	"SUCCESS":              "成功",
	"UNAUTHORIZED":         "需要登录",
	"INVALID_CREDENTIALS":  "邮箱或密码错误",
	"ACCOUNT_LOCKED":       "登录失败次数过多，账户已暂时锁定",
	"ACCOUNT_DISABLED":     "账户已被禁用",
	"TOKEN_EXPIRED":        "登录已过期，请重新登录",
	"INVALID_TOKEN":        "无效的身份令牌",
	"INVALID_TOKEN_TYPE":   "令牌类型不正确",
	"TOKEN_REVOKED":        "令牌已被吊销",
	"REFRESH_LIMIT":        "会话续期次数已达上限，请重新登录",
	"FORBIDDEN":            "没有执行此操作的权限",
	"INSUFFICIENT_SCOPE":   "服务令牌缺少所需权限范围",
	"SERVICE_UNAUTHORIZED": "需要有效的服务令牌",
	"TENANT_REQUIRED":      "无法确定请求所属的店铺",
	"TENANT_NOT_FOUND":     "店铺不存在",
	"TENANT_INACTIVE":      "店铺未启用",
	"TENANT_MISMATCH":      "令牌属于其他店铺",
	"NOT_FOUND":            "资源不存在",
	"ALREADY_EXISTS":       "资源已存在",
	"CONCURRENCY_CONFLICT": "资源已被他人修改，请重试",
	"VALIDATION_ERROR":     "部分字段无效",
	"INVALID_INPUT":        "输入无效",
	"BAD_REQUEST":          "请求格式错误",
	"INVALID_STATE":        "当前状态下不允许此操作",
	"INSUFFICIENT_STOCK":   "部分商品库存不足",
	"CART_EMPTY":           "购物车为空",
	"LICENSE_INVALID":      "插件许可证缺失或无效",
	"PLUGIN_DISABLED":      "店铺未启用该插件",
	"PAYLOAD_TOO_LARGE":    "请求体过大",
	"RATE_LIMITED":         "请求过于频繁，请稍后再试",
	"INTERNAL_ERROR":       "服务器内部错误",
}
