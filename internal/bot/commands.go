package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bydlikbot/bydlik/internal/admin"
	"github.com/bydlikbot/bydlik/internal/models"
)

const (
	cmdAddQuestion    = models.BotName + " добавь вопрос"
	cmdDeleteQuestion = models.BotName + " удали вопрос"
	cmdInsultChance   = models.BotName + " шанс оскорбления"
	cmdInsultLevel    = models.BotName + " уровень оскорблений"
	cmdInsultBoost    = models.BotName + " множитель оскорбления"
	cmdQuestionChance = models.BotName + " шанс фразы"
	cmdWhenChance     = models.BotName + " шанс времени"
	cmdShowSettings   = models.BotName + " настройки"
	cmdHelp           = models.BotName + " команды"
	cmdAdminHelp      = models.BotName + " админские команды"
	cmdListUsers      = models.BotName + " покажи юзеров"
	cmdTagUser        = models.BotName + " тегай"
	cmdUntagUser      = models.BotName + " не тегай"
	cmdPromote        = models.BotName + " сделай админом"
	cmdDemote         = models.BotName + " убери админа"
	cmdBan            = models.BotName + " бан"
	cmdUnban          = models.BotName + " разбан"
	cmdQuotaStatus    = models.BotName + " осталось запросов"
)

// commandContext carries the permission facts every command needs.
type commandContext struct {
	message       *tgbotapi.Message
	userID        int64
	chatID        int64
	isPrivate     bool
	isGlobalAdmin bool
	isChatAdmin   bool
}

func (c *commandContext) hasAdminRights() bool {
	return c.isGlobalAdmin || c.isChatAdmin
}

// handleAdminCommand matches the administrative command prefixes against the
// lowercased text. A recognized command is handled exclusively: the caller
// must not run any further pipeline steps for this message.
func (b *Bot) handleAdminCommand(ctx context.Context, logger *zap.Logger, message *tgbotapi.Message, text, rawText string) bool {
	cc := &commandContext{
		message:       message,
		userID:        message.From.ID,
		chatID:        message.Chat.ID,
		isPrivate:     message.Chat.IsPrivate(),
		isGlobalAdmin: b.admins.IsGlobalAdmin(ctx, message.From.ID),
	}
	if !cc.isPrivate {
		cc.isChatAdmin = b.admins.IsChatAdmin(ctx, cc.userID, cc.chatID)
	}

	switch {
	case strings.HasPrefix(text, cmdAddQuestion):
		b.cmdAddQuestion(ctx, logger, cc, rawText)
	case strings.HasPrefix(text, cmdDeleteQuestion):
		b.cmdDeleteQuestion(ctx, logger, cc, rawText)
	case strings.HasPrefix(text, cmdInsultChance):
		b.cmdSetChance(ctx, logger, cc, rawText, cmdInsultChance,
			"Формат: Быдлик шанс оскорбления 5.5 (в процентах)",
			"шанс оскорбления", b.settings.SetInsultProbability)
	case strings.HasPrefix(text, cmdInsultLevel):
		b.cmdSetLevel(ctx, logger, cc, rawText)
	case strings.HasPrefix(text, cmdInsultBoost):
		b.cmdSetBoost(ctx, logger, cc, rawText)
	case strings.HasPrefix(text, cmdQuestionChance):
		b.cmdSetChance(ctx, logger, cc, rawText, cmdQuestionChance,
			"Формат: Быдлик шанс фразы 50 (в процентах)",
			"шанс фразы", b.settings.SetQuestionPhraseChance)
	case strings.HasPrefix(text, cmdWhenChance):
		b.cmdSetChance(ctx, logger, cc, rawText, cmdWhenChance,
			"Формат: Быдлик шанс времени 50 (в процентах)",
			"шанс времени", b.settings.SetWhenPhraseChance)
	case strings.HasPrefix(text, cmdShowSettings):
		b.cmdShowSettings(ctx, logger, cc)
	case strings.HasPrefix(text, cmdAdminHelp):
		b.cmdAdminHelp(logger, cc)
	case strings.HasPrefix(text, cmdHelp):
		b.cmdHelp(ctx, logger, cc)
	case strings.HasPrefix(text, cmdListUsers):
		b.cmdListUsers(ctx, logger, cc)
	case strings.HasPrefix(text, cmdUntagUser):
		return b.cmdTagTarget(ctx, logger, cc, rawText, cmdUntagUser, false)
	case strings.HasPrefix(text, cmdTagUser):
		return b.cmdTagTarget(ctx, logger, cc, rawText, cmdTagUser, true)
	case strings.HasPrefix(text, cmdPromote):
		b.cmdPromote(ctx, logger, cc, rawText)
	case strings.HasPrefix(text, cmdUnban):
		b.cmdUnban(ctx, logger, cc, rawText)
	case strings.HasPrefix(text, cmdBan):
		b.cmdBan(ctx, logger, cc, rawText)
	case strings.HasPrefix(text, cmdDemote):
		b.cmdDemote(ctx, logger, cc, rawText)
	case strings.HasPrefix(text, cmdQuotaStatus):
		b.cmdQuotaStatus(ctx, logger, cc)
	default:
		return false
	}
	return true
}

func (b *Bot) cmdAddQuestion(ctx context.Context, logger *zap.Logger, cc *commandContext, rawText string) {
	if !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Только администраторы могут добавлять вопросы")
		return
	}
	if cc.isPrivate && !cc.isGlobalAdmin {
		b.reply(logger, cc.message, "Глобальные шаблоны можно менять только глобальным администраторам")
		return
	}

	payload := extractPayload(rawText, cmdAddQuestion)
	parts := strings.SplitN(payload, "|", 2)
	if len(parts) != 2 {
		b.reply(logger, cc.message, "Формат: Быдлик добавь вопрос триггер|ответ (используй {mention} и {question})")
		return
	}
	trigger := strings.ToLower(strings.TrimSpace(parts[0]))
	response := strings.TrimSpace(parts[1])
	if trigger == "" || response == "" {
		b.reply(logger, cc.message, "Формат: Быдлик добавь вопрос триггер|ответ (используй {mention} и {question})")
		return
	}

	targetChat := cc.chatID
	if cc.isPrivate {
		targetChat = models.GlobalChatID
	}
	err := b.store.SaveQuestionTemplate(ctx, models.QuestionTemplate{
		Trigger:  trigger,
		Response: response,
		ChatID:   targetChat,
	})
	if err != nil {
		logger.Error("failed to save question template", zap.Error(err))
		b.reply(logger, cc.message, "Не получилось сохранить шаблон, попробуй ещё раз")
		return
	}

	scopeLabel := "для этого чата"
	if targetChat == models.GlobalChatID {
		scopeLabel = "глобально"
	}
	b.reply(logger, cc.message, "Шаблон сохранён "+scopeLabel)
}

func (b *Bot) cmdDeleteQuestion(ctx context.Context, logger *zap.Logger, cc *commandContext, rawText string) {
	if !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Только администраторы могут удалять вопросы")
		return
	}
	if cc.isPrivate && !cc.isGlobalAdmin {
		b.reply(logger, cc.message, "Глобальные шаблоны можно менять только глобальным администраторам")
		return
	}

	trigger := strings.ToLower(extractPayload(rawText, cmdDeleteQuestion))
	if trigger == "" {
		b.reply(logger, cc.message, "Формат: Быдлик удали вопрос триггер")
		return
	}

	targetChat := cc.chatID
	if cc.isPrivate {
		targetChat = models.GlobalChatID
	}
	deleted, err := b.store.DeleteQuestionTemplate(ctx, targetChat, trigger)
	if err != nil {
		logger.Error("failed to delete question template", zap.Error(err))
		b.reply(logger, cc.message, "Не получилось удалить шаблон, попробуй ещё раз")
		return
	}
	if !deleted {
		b.reply(logger, cc.message, "Такого шаблона нет")
		return
	}
	b.reply(logger, cc.message, "Шаблон удалён")
}

// checkSettingMutation enforces the scope rule: global values change only
// from a private context and only by a global admin; chat values change only
// by chat or global admins.
func (b *Bot) checkSettingMutation(logger *zap.Logger, cc *commandContext, what string) bool {
	if cc.isPrivate && !cc.isGlobalAdmin {
		b.reply(logger, cc.message, "Глобальный "+what+" может менять только глобальный администратор")
		return false
	}
	if !cc.isPrivate && !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Только администраторы могут менять "+what+" в чате")
		return false
	}
	return true
}

func (b *Bot) cmdSetChance(ctx context.Context, logger *zap.Logger, cc *commandContext, rawText, prefix, usage, what string,
	set func(context.Context, int64, float64) error) {
	if !b.checkSettingMutation(logger, cc, what) {
		return
	}

	payload := strings.TrimSpace(strings.TrimSuffix(extractPayload(rawText, prefix), "%"))
	value, err := strconv.ParseFloat(strings.ReplaceAll(payload, ",", "."), 64)
	if err != nil {
		b.reply(logger, cc.message, usage)
		return
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	targetChat := cc.chatID
	if cc.isPrivate {
		targetChat = models.GlobalChatID
	}
	if err := set(ctx, targetChat, value/100); err != nil {
		logger.Error("failed to store setting", zap.Error(err), zap.String("setting", what))
		b.reply(logger, cc.message, "Не получилось сохранить настройку, попробуй ещё раз")
		return
	}

	if targetChat == models.GlobalChatID {
		b.reply(logger, cc.message, fmt.Sprintf("Глобальный %s обновлён до %.2f%%", what, value))
	} else {
		b.reply(logger, cc.message, fmt.Sprintf("%s в этом чате обновлён до %.2f%%", capitalize(what), value))
	}
}

func (b *Bot) cmdSetLevel(ctx context.Context, logger *zap.Logger, cc *commandContext, rawText string) {
	if !b.checkSettingMutation(logger, cc, "уровень оскорблений") {
		return
	}

	payload := extractPayload(rawText, cmdInsultLevel)
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		b.reply(logger, cc.message, "Формат: Быдлик уровень оскорблений N (1-4)")
		return
	}
	level, err := strconv.Atoi(fields[0])
	if err != nil {
		b.reply(logger, cc.message, "Формат: Быдлик уровень оскорблений N (1-4)")
		return
	}
	if level < 1 || level > 4 {
		b.reply(logger, cc.message, "Допустимые значения: 1, 2, 3 или 4")
		return
	}

	targetChat := cc.chatID
	if cc.isPrivate {
		targetChat = models.GlobalChatID
	}
	if err := b.settings.SetInsultLevel(ctx, targetChat, level); err != nil {
		logger.Error("failed to store insult level", zap.Error(err))
		b.reply(logger, cc.message, "Не получилось сохранить настройку, попробуй ещё раз")
		return
	}

	if targetChat == models.GlobalChatID {
		b.reply(logger, cc.message, fmt.Sprintf("Глобальный уровень оскорблений установлен на %d", level))
	} else {
		b.reply(logger, cc.message, fmt.Sprintf("Уровень оскорблений в этом чате установлен на %d", level))
	}
}

func (b *Bot) cmdSetBoost(ctx context.Context, logger *zap.Logger, cc *commandContext, rawText string) {
	if !b.checkSettingMutation(logger, cc, "множитель оскорбления") {
		return
	}

	payload := strings.TrimSpace(extractPayload(rawText, cmdInsultBoost))
	value, err := strconv.ParseFloat(strings.ReplaceAll(payload, ",", "."), 64)
	if err != nil {
		b.reply(logger, cc.message, "Формат: Быдлик множитель оскорбления 2 (минимум 1)")
		return
	}
	if value < 1 {
		value = 1
	}

	targetChat := cc.chatID
	if cc.isPrivate {
		targetChat = models.GlobalChatID
	}
	if err := b.settings.SetInsultBoost(ctx, targetChat, value); err != nil {
		logger.Error("failed to store insult boost", zap.Error(err))
		b.reply(logger, cc.message, "Не получилось сохранить настройку, попробуй ещё раз")
		return
	}
	b.reply(logger, cc.message, fmt.Sprintf("Множитель оскорбления обновлён до %.2f", value))
}

func (b *Bot) cmdShowSettings(ctx context.Context, logger *zap.Logger, cc *commandContext) {
	if !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Только администраторы могут смотреть настройки")
		return
	}

	scope := models.GlobalChatID
	if !cc.isPrivate {
		scope = cc.chatID
	}
	summary := fmt.Sprintf(
		"Текущие настройки:\n"+
			"Шанс оскорбления: %.2f%%\n"+
			"Уровень оскорблений: %d\n"+
			"Множитель оскорбления: %.2f\n"+
			"Шанс фразы в вопросах: %.0f%%\n"+
			"Шанс фразы времени: %.0f%%",
		b.settings.InsultProbability(ctx, scope)*100,
		b.settings.InsultLevel(ctx, scope),
		b.settings.InsultBoost(ctx, scope),
		b.settings.QuestionPhraseChance(ctx, scope)*100,
		b.settings.WhenPhraseChance(ctx, scope)*100,
	)
	b.reply(logger, cc.message, summary)
}

func (b *Bot) cmdHelp(ctx context.Context, logger *zap.Logger, cc *commandContext) {
	scope := models.GlobalChatID
	if !cc.isPrivate {
		scope = cc.chatID
	}

	commands := []string{
		"Быдлик когда/сколько/насколько/... — развлечения и рандомные ответы",
	}
	templates, err := b.store.GetQuestionTemplates(ctx, scope)
	if err != nil {
		logger.Error("failed to load triggers for help", zap.Error(err))
	}
	if len(templates) > 0 {
		triggers := make([]string, 0, len(templates))
		for _, tpl := range templates {
			triggers = append(triggers, tpl.Trigger)
		}
		sort.Strings(triggers)
		commands = append(commands, "Быдлик "+strings.Join(triggers, "/")+" — вопросы про участников чата")
	}
	commands = append(commands,
		"Быдлик тегай меня / Быдлик не тегай меня — управлять собственным тегом",
		"Быдлик команды — эта справка",
	)
	b.reply(logger, cc.message, "Доступные команды:\n"+strings.Join(commands, "\n"))
}

func (b *Bot) cmdAdminHelp(logger *zap.Logger, cc *commandContext) {
	if !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Только администраторы могут смотреть админскую справку")
		return
	}
	commands := []string{
		"Быдлик добавь вопрос триггер|ответ — добавить вопрос (локально в чате). Используй {mention} и {question}",
		"Быдлик удали вопрос триггер — удалить вопрос",
		"Быдлик шанс оскорбления X — шанс оскорбления % (глобально в личке, локально в чате)",
		"Быдлик уровень оскорблений 1-4 — изменить уровень оскорблений",
		"Быдлик множитель оскорбления X — множитель шанса при упоминании",
		"Быдлик шанс фразы X / Быдлик шанс времени X — шансы фраз вместо чисел",
		"Быдлик настройки — текущие настройки",
		"Быдлик сделай админом @user / Быдлик убери админа @user",
		"Быдлик бан @user 10м / Быдлик разбан @user",
		"Быдлик покажи юзеров — список пользователей/тегов",
		"Быдлик тегай @user / Быдлик не тегай @user — изменить тег другого пользователя",
		"Быдлик осталось запросов — статус квоты",
		"Быдлик админские команды — эта справка",
	}
	b.reply(logger, cc.message, "Админские команды:\n"+strings.Join(commands, "\n"))
}

func (b *Bot) cmdListUsers(ctx context.Context, logger *zap.Logger, cc *commandContext) {
	if cc.isPrivate {
		b.reply(logger, cc.message, "Список пользователей доступен только внутри чата")
		return
	}
	if !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Только администраторы могут просматривать список пользователей")
		return
	}

	users, err := b.store.GetChatUsers(ctx, cc.chatID)
	if err != nil {
		logger.Error("failed to load chat users", zap.Error(err))
		b.reply(logger, cc.message, "Не получилось загрузить пользователей, попробуй ещё раз")
		return
	}
	if len(users) == 0 {
		b.reply(logger, cc.message, "Нет данных о пользователях этого чата")
		return
	}

	lines := []string{"Пользователи и статус тегов:"}
	for _, user := range users {
		status := "не тегаю"
		if user.Tag {
			status = "тегаю"
		}
		line := user.DisplayName() + " — " + status
		if user.IsAdmin || b.admins.IsChatAdmin(ctx, user.ID, cc.chatID) {
			line += " (админ)"
		}
		lines = append(lines, line)
	}
	b.reply(logger, cc.message, strings.Join(lines, "\n"))
}

// cmdTagTarget handles the admin tag commands. A "меня" payload is the
// self-toggle intent, not a command; it falls back to the intent pipeline.
func (b *Bot) cmdTagTarget(ctx context.Context, logger *zap.Logger, cc *commandContext, rawText, prefix string, wantTag bool) bool {
	payload := extractPayload(rawText, prefix)
	if strings.HasPrefix(strings.ToLower(payload), "меня") {
		return false
	}

	if cc.isPrivate {
		b.reply(logger, cc.message, "Настройки тегов доступны только в чате")
		return true
	}
	if !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Только администратор чата может менять теги других пользователей")
		return true
	}

	targetID, _, ok := b.extractTarget(ctx, cc.message, rawText, prefix)
	if !ok {
		b.reply(logger, cc.message, "Укажи ID, @username или ответь на сообщение после команды 'тегай' или 'не тегай'")
		return true
	}

	if err := b.store.SetTagStatus(ctx, targetID, cc.chatID, wantTag); err != nil {
		logger.Error("failed to update tag status", zap.Error(err))
		b.reply(logger, cc.message, "Не получилось обновить тег, попробуй ещё раз")
		return true
	}

	status := "теперь без тегов"
	if wantTag {
		status = "теперь тегается"
	}
	b.reply(logger, cc.message, b.targetName(ctx, targetID, cc.chatID)+" "+status)
	return true
}

func (b *Bot) cmdPromote(ctx context.Context, logger *zap.Logger, cc *commandContext, rawText string) {
	if !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Только администраторы могут назначать админов")
		return
	}

	targetID, _, ok := b.extractTarget(ctx, cc.message, rawText, cmdPromote)
	if !ok {
		b.reply(logger, cc.message, "Укажи ID, @username или ответь на сообщение: Быдлик сделай админом 123")
		return
	}

	if err := b.admins.PromoteChatAdmin(ctx, targetID, cc.chatID); err != nil {
		logger.Error("failed to promote chat admin", zap.Error(err))
		b.reply(logger, cc.message, "Не получилось назначить админа, попробуй ещё раз")
		return
	}
	b.reply(logger, cc.message, b.targetName(ctx, targetID, cc.chatID)+" теперь администратор этого чата")
}

func (b *Bot) cmdDemote(ctx context.Context, logger *zap.Logger, cc *commandContext, rawText string) {
	if !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Только администраторы могут снимать админов")
		return
	}

	targetID, _, ok := b.extractTarget(ctx, cc.message, rawText, cmdDemote)
	if !ok {
		b.reply(logger, cc.message, "Укажи ID, @username или ответь на сообщение: Быдлик убери админа 123")
		return
	}

	err := b.admins.DemoteChatAdmin(ctx, targetID, cc.chatID)
	if errors.Is(err, admin.ErrGlobalAdminImmune) {
		b.reply(logger, cc.message, "Глобального администратора нельзя снять")
		return
	}
	if err != nil {
		logger.Error("failed to demote chat admin", zap.Error(err))
		b.reply(logger, cc.message, "Не получилось снять админа, попробуй ещё раз")
		return
	}
	b.reply(logger, cc.message, b.targetName(ctx, targetID, cc.chatID)+" больше не администратор этого чата")
}

func (b *Bot) cmdBan(ctx context.Context, logger *zap.Logger, cc *commandContext, rawText string) {
	if cc.isPrivate || !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Банить можно только в чате и только администраторам")
		return
	}

	targetID, remainder, ok := b.extractTarget(ctx, cc.message, rawText, cmdBan)
	if !ok {
		b.reply(logger, cc.message, "Укажи ID, @username или ответь на сообщение: Быдлик бан 123 10м")
		return
	}

	remainder = strings.TrimSpace(remainder)
	if lower := strings.ToLower(remainder); strings.HasPrefix(lower, "на ") {
		remainder = strings.TrimSpace(remainder[len("на "):])
	}
	until, errText := b.parseBanDuration(remainder)
	if errText != "" {
		b.reply(logger, cc.message, errText)
		return
	}

	if err := b.admins.Ban(ctx, targetID, cc.chatID, until); err != nil {
		logger.Error("failed to ban user", zap.Error(err))
		b.reply(logger, cc.message, "Не получилось забанить, попробуй ещё раз")
		return
	}

	name := b.targetName(ctx, targetID, cc.chatID)
	if until != nil {
		b.reply(logger, cc.message, fmt.Sprintf("%s забанен до %s", name, until.UTC().Format("2006-01-02 15:04 UTC")))
	} else {
		b.reply(logger, cc.message, name+" забанен без срока")
	}
}

func (b *Bot) cmdUnban(ctx context.Context, logger *zap.Logger, cc *commandContext, rawText string) {
	if cc.isPrivate || !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Разбанить можно только в чате и только администраторам")
		return
	}

	targetID, _, ok := b.extractTarget(ctx, cc.message, rawText, cmdUnban)
	if !ok {
		b.reply(logger, cc.message, "Укажи ID, @username или ответь на сообщение: Быдлик разбан 123")
		return
	}

	if err := b.admins.Unban(ctx, targetID, cc.chatID); err != nil {
		logger.Error("failed to unban user", zap.Error(err))
		b.reply(logger, cc.message, "Не получилось разбанить, попробуй ещё раз")
		return
	}
	b.reply(logger, cc.message, b.targetName(ctx, targetID, cc.chatID)+" разбанен")
}

func (b *Bot) cmdQuotaStatus(ctx context.Context, logger *zap.Logger, cc *commandContext) {
	if !cc.hasAdminRights() {
		b.reply(logger, cc.message, "Только администраторы могут смотреть статус квоты")
		return
	}

	status, err := b.quota.Status(ctx)
	if err != nil {
		logger.Warn("failed to fetch quota status", zap.Error(err))
		b.reply(logger, cc.message, "Не удалось получить статус запросов")
		return
	}
	b.reply(logger, cc.message, fmt.Sprintf("Осталось запросов: %d из %d", status.Remaining, status.Total))
}

// targetName formats how a command reply refers to its target: the known
// @username when there is one, otherwise the numeric id.
func (b *Bot) targetName(ctx context.Context, userID, chatID int64) string {
	user, err := b.store.GetUser(ctx, userID, chatID)
	if err == nil && user != nil && user.Username != "" {
		return "@" + user.Username
	}
	return strconv.FormatInt(userID, 10)
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
