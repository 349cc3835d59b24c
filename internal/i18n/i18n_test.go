package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	i := GetInstance()
	assert.ElementsMatch(t, []string{LangEnUS, LangZhCN}, i.GetSupportedLanguages())

	assert.Equal(t, "Invalid credentials", i.Translate("invalid_credentials", LangEnUS))
	assert.Equal(t, "用户名或密码错误", i.Translate("invalid_credentials", LangZhCN))
	// 未知语言回退到默认语言, 未知键原样返回
	assert.Equal(t, "Invalid credentials", i.Translate("invalid_credentials", "fr-FR"))
	assert.Equal(t, "no_such_key", i.Translate("no_such_key", LangEnUS))
}

func TestSetDefaultLanguage(t *testing.T) {
	i := GetInstance()
	t.Cleanup(func() { i.SetDefaultLanguage(LangEnUS) })

	i.SetDefaultLanguage("xx-XX")
	assert.Equal(t, LangEnUS, i.GetDefaultLanguage())

	i.SetDefaultLanguage(LangZhCN)
	assert.Equal(t, LangZhCN, i.GetDefaultLanguage())
	assert.Equal(t, "视频未找到", i.Translate("video_not_found", ""))
}
