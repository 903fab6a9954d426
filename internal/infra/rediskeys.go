package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "twinsecure"
)

// Ключи пользовательских настроек (аналог localStorage браузера)
const (
	RedisKeyAuthToken = RedisNamespace + ":prefs:auth_token"
	RedisKeyTheme     = RedisNamespace + ":prefs:theme"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanNotifications — всплывающие уведомления панели (toast).
	RedisChanNotifications = RedisNamespace + ":dashboard:notifications"
)
