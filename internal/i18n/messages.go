// Package i18n holds the localized texts of API error responses.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	InvalidPayload        = "invalid_payload"
	MissingUser           = "missing_user"
	InvalidStyle          = "invalid_style"
	InvalidInput          = "invalid_input"
	UnknownProvider       = "unknown_provider"
	ProviderNotConfigured = "provider_not_configured"
	InsufficientCredits   = "insufficient_credits"
	JobIDRequired         = "job_id_required"
	Internal              = "internal"
	DuplicatePayment      = "duplicate_payment"
	TrialerPurchased      = "trialer_purchased"
	UnknownTier           = "unknown_tier"
	InvalidGoogleToken    = "invalid_google_token"
	GoogleNotConfigured   = "google_not_configured"
	NotFound              = "not_found"
	RateLimited           = "rate_limited"
)

var texts = map[string][2]string{
	InvalidPayload:        {"invalid payload", "请求内容无效"},
	MissingUser:           {"missing user context", "缺少用户信息"},
	InvalidStyle:          {"Invalid style ID", "无效的风格 ID"},
	InvalidInput:          {"inputImageUrl must be an absolute http(s) URL", "inputImageUrl 必须是完整的 http(s) 地址"},
	UnknownProvider:       {"Unknown generation provider", "未知的生成服务"},
	ProviderNotConfigured: {"Generation service not configured", "生成服务尚未配置"},
	InsufficientCredits:   {"Insufficient credits", "积分不足"},
	JobIDRequired:         {"job_id required", "缺少 job_id"},
	Internal:              {"internal error", "服务器内部错误"},
	DuplicatePayment:      {"payment already applied", "该支付已入账"},
	TrialerPurchased:      {"Trial package can only be purchased once", "体验套餐仅限购买一次"},
	UnknownTier:           {"Unknown pricing tier %q", "未知的价格档位 %q"},
	InvalidGoogleToken:    {"invalid google token", "Google 登录凭证无效"},
	GoogleNotConfigured:   {"google sign-in not configured", "Google 登录尚未配置"},
	NotFound:              {"not found", "未找到"},
	RateLimited:           {"Too many generation requests, retry in %d seconds", "生成请求过于频繁，请 %d 秒后重试"},
}

var (
	cat      *catalog.Builder
	matcher  = language.NewMatcher([]language.Tag{language.English, language.Chinese})
	fallback = language.English
)

func init() {
	cat = catalog.NewBuilder(catalog.Fallback(fallback))
	for key, t := range texts {
		_ = cat.SetString(language.English, key, t[0])
		_ = cat.SetString(language.Chinese, key, t[1])
	}
}

// Printer returns a printer for locale backed by the error catalog.
func Printer(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = fallback
	}
	_, idx, _ := matcher.Match(tag)
	if idx == 1 {
		tag = language.Chinese
	} else {
		tag = language.English
	}
	return message.NewPrinter(tag, message.Catalog(cat))
}

// Text renders key in locale. Unknown keys are returned as-is.
func Text(locale, key string, args ...any) string {
	return Printer(locale).Sprintf(key, args...)
}
