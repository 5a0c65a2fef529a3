package bot

const welcomeText = "👋 Добро пожаловать в <b>Ulytau Inside</b> — ваш персональный агрегатор новостей Улытауской области!\n\n" +
	"🚀 <b>Преимущества:</b>\n" +
	"• <b>Мгновенно</b>: Узнавайте о новостях первыми благодаря автоматическим пуш-уведомлениям.\n" +
	"• <b>Важно</b>: Особый приоритет законам и изменениям в Конституции РК.\n" +
	"• <b>Удобно</b>: Умная сортировка и только проверенные источники.\n\n" +
	"📍 <i>Вы автоматически подписаны на уведомления.</i>\n\n" +
	"🤖 <b>Команды:</b>\n" +
	"• /latest — Свежие новости региона\n" +
	"• /week — Дайджест за неделю\n" +
	"• /subscribe — Включить уведомления\n" +
	"• /unsubscribe — Выключить уведомления\n" +
	"• /status — Проверить работу системы\n" +
	"• /help — Помощь"

const helpText = "📋 <b>Доступные команды:</b>\n\n" +
	"/latest - Последние новости\n" +
	"/subscribe - Включить пуш-уведомления\n" +
	"/unsubscribe - Выключить пуш-уведомления\n" +
	"/week - Дайджест за неделю\n" +
	"/status - Диагностика API"
