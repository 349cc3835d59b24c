// Package i18n 提供国际化支持
// 负责管理错误消息的语言包和翻译功能
package i18n

import (
	"sync"

	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// 支持的语言
const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"
)

var (
	instance *I18n
	once     sync.Once

	// 语言包存储
	translations = map[string]map[string]string{
		LangEnUS: {
			"success":               "Success",
			"internal_server_error": "Internal server error",
			"invalid_params":        "Invalid parameters",
			"unauthorized":          "Unauthorized",
			"forbidden":             "Forbidden",
			"not_found":             "Resource not found",

			"invalid_credentials": "Invalid credentials",
			"token_missing":       "Access denied. No token provided.",
			"token_invalid":       "Invalid or expired token.",
			"secret_path_invalid": "Invalid path",
			"fields_required":     "All fields are required",

			"unsupported_media_type":     "Unsupported media type",
			"payload_too_large":          "File too large",
			"storage_write_failed":       "Failed to store file",
			"storage_delete_failed":      "Failed to delete file",
			"storage_resolve_failed":     "Stored file is unavailable",
			"storage_config_invalid":     "Storage configuration is invalid",
			"storage_provider_unsupported": "Storage provider not supported",

			"database_connection": "Database connection error",
			"database_query":      "Database error",
			"database_insert":     "Failed to save record",
			"database_update":     "Failed to update record",
			"database_delete":     "Failed to delete record",
			"record_not_found":    "Record not found",
			"video_not_found":     "Video not found",

			"unknown_error": "Unknown error",
		},
		LangZhCN: {
			"success":               "成功",
			"internal_server_error": "服务器内部错误",
			"invalid_params":        "参数错误",
			"unauthorized":          "未授权",
			"forbidden":             "禁止访问",
			"not_found":             "资源未找到",

			"invalid_credentials": "用户名或密码错误",
			"token_missing":       "拒绝访问，未提供令牌",
			"token_invalid":       "令牌无效或已过期",
			"secret_path_invalid": "路径无效",
			"fields_required":     "所有字段均为必填项",

			"unsupported_media_type":     "不支持的文件类型",
			"payload_too_large":          "文件过大",
			"storage_write_failed":       "文件存储失败",
			"storage_delete_failed":      "文件删除失败",
			"storage_resolve_failed":     "存储的文件不可用",
			"storage_config_invalid":     "存储配置无效",
			"storage_provider_unsupported": "存储提供商不支持",

			"database_connection": "数据库连接错误",
			"database_query":      "数据库查询错误",
			"database_insert":     "数据库插入错误",
			"database_update":     "数据库更新错误",
			"database_delete":     "数据库删除错误",
			"record_not_found":    "记录未找到",
			"video_not_found":     "视频未找到",

			"unknown_error": "未知错误",
		},
	}
)

// I18n 国际化管理器
type I18n struct {
	mu          sync.RWMutex
	translators map[string]ut.Translator
	defaultLang string
}

// GetInstance 获取I18n单例
func GetInstance() *I18n {
	once.Do(func() {
		instance = &I18n{
			translators: make(map[string]ut.Translator),
			defaultLang: LangEnUS,
		}
		instance.initTranslators()
	})
	return instance
}

// initTranslators 初始化翻译器
func (i *I18n) initTranslators() {
	enUS := en_US.New()
	zhCN := zh.New()
	uni := ut.New(enUS, enUS, zhCN)

	// 注册支持的语言 - 使用locale库的标识符
	langMappings := map[string]string{
		LangEnUS: "en_US",
		LangZhCN: "zh",
	}

	for ourLang, localeLang := range langMappings {
		trans, found := uni.GetTranslator(localeLang)
		if !found {
			logger.Errorf("初始化翻译器失败: %s (locale: %s)", ourLang, localeLang)
			continue
		}
		i.translators[ourLang] = trans
	}

	logger.Debugf("国际化翻译器初始化完成, 语言数=%d", len(i.translators))
}

// Translate 根据键和语言获取翻译
// 未知语言回退到默认语言, 未知键原样返回
func (i *I18n) Translate(key, lang string) string {
	def := i.GetDefaultLanguage()
	if !i.IsSupportedLanguage(lang) {
		lang = def
	}

	if translation, found := translations[lang][key]; found {
		return translation
	}
	if lang != def {
		if translation, found := translations[def][key]; found {
			return translation
		}
	}

	logger.Warnf("未找到翻译: %s, 语言: %s", key, lang)
	return key
}

// SetDefaultLanguage 设置默认语言, 不支持的语言会被忽略
func (i *I18n) SetDefaultLanguage(lang string) {
	if !i.IsSupportedLanguage(lang) {
		logger.Warnf("不支持的语言: %s, 保持默认语言 %s", lang, i.GetDefaultLanguage())
		return
	}
	i.mu.Lock()
	i.defaultLang = lang
	i.mu.Unlock()
	logger.Infof("设置默认语言为: %s", lang)
}

// GetDefaultLanguage 获取默认语言
func (i *I18n) GetDefaultLanguage() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.defaultLang
}

// IsSupportedLanguage 检查语言是否支持
func (i *I18n) IsSupportedLanguage(lang string) bool {
	_, exists := i.translators[lang]
	return exists
}

// GetSupportedLanguages 获取支持的语言列表
func (i *I18n) GetSupportedLanguages() []string {
	langs := make([]string, 0, len(i.translators))
	for lang := range i.translators {
		langs = append(langs, lang)
	}
	return langs
}
