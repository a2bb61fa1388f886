package telegrambot

import (
	"html"
	"strings"
)

const (
	msgAlreadyLinked  = "✅ Ваш аккаунт уже привязан: <b>%s</b>"
	msgEnterCode      = "Введите 6-значный код из личного кабинета, чтобы привязать аккаунт."
	msgCodeNotFound   = "❌ Пользователь с таким кодом не найден. Проверьте код и попробуйте еще раз."
	msgLinked         = "✅ Аккаунт привязан: <b>%s</b>. Теперь новые заявки будут приходить сюда."
	msgAmbiguousCode  = "⚠️ Код подходит к нескольким пользователям. Обратитесь к администратору."
	msgTelegramTaken  = "⚠️ Этот Telegram уже привязан к другому пользователю. Обратитесь к администратору."
	msgStatusLinked   = "👤 <b>%s</b>\n🏢 %s"
	msgStatusNoTenant = "👤 <b>%s</b>"
	msgNotLinked      = "Аккаунт не привязан. Отправьте /start, чтобы привязать его."
	msgInternalError  = "Произошла ошибка, попробуйте позже."

	toastAccepted     = "✅ Заявка взята в работу"
	toastRejected     = "❌ Заявка отклонена"
	toastUnauthorized = "⛔ Вы не авторизованы"
	toastTaken        = "⚠️ Заявка уже у другого менеджера"
	toastNotFound     = "Заявка не найдена"
	toastFailed       = "Ошибка, попробуйте позже"
)

const (
	cmdStart  = "/start"
	cmdStatus = "/status"

	codeLength = 6
)

// normalizeCode trims and upper-cases a linking code.
func normalizeCode(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}

// command returns the bot command in text without arguments or @botname.
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	if i := strings.IndexAny(text, " \n"); i >= 0 {
		text = text[:i]
	}
	if i := strings.IndexByte(text, '@'); i >= 0 {
		text = text[:i]
	}
	return strings.ToLower(text)
}

func escape(s string) string {
	return html.EscapeString(s)
}
