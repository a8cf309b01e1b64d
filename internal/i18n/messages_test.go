package i18n

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		locale string
		key    string
		args   []any
		want   string
	}{
		{locale: "en", key: InsufficientCredits, want: "Insufficient credits"},
		{locale: "zh", key: InsufficientCredits, want: "积分不足"},
		{locale: "zh-CN", key: ProviderNotConfigured, want: "生成服务尚未配置"},
		{locale: "fr", key: InvalidStyle, want: "Invalid style ID"},
		{locale: "", key: InvalidStyle, want: "Invalid style ID"},
		{locale: "en", key: UnknownTier, args: []any{"gold"}, want: `Unknown pricing tier "gold"`},
		{locale: "en", key: "no_such_key", want: "no_such_key"},
	}
	for _, tc := range tests {
		t.Run(tc.locale+"/"+tc.key, func(t *testing.T) {
			if got := Text(tc.locale, tc.key, tc.args...); got != tc.want {
				t.Fatalf("Text(%q, %q) = %q, want %q", tc.locale, tc.key, got, tc.want)
			}
		})
	}
}

func TestEveryKeyHasBothLocales(t *testing.T) {
	for key, pair := range texts {
		if pair[0] == "" || pair[1] == "" {
			t.Fatalf("key %q missing a translation", key)
		}
	}
}
