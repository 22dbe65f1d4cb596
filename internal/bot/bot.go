package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"daily-tasks/internal/calendar"
	"daily-tasks/internal/model"
	"daily-tasks/internal/planner"
	"daily-tasks/internal/service"
)

const (
	cbTogglePrefix = "toggle:"
	cbDeletePrefix = "delete:"
)

const (
	menuLabelToday  = "📅 Today"
	menuLabelTasks  = "📋 All tasks"
	menuLabelReport = "📊 Report"
	menuLabelHelp   = "ℹ️ Help"
)

// Bot connects the Telegram API to the planner.
type Bot struct {
	api           *tgbotapi.BotAPI
	planner       *planner.Planner
	digest        *service.DigestService
	allowedChatID int64
	now           func() time.Time
	log           zerolog.Logger
}

func New(token string, p *planner.Planner, digest *service.DigestService, allowedChatID int64, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	return &Bot{
		api:           api,
		planner:       p,
		digest:        digest,
		allowedChatID: allowedChatID,
		now:           calendar.Now,
		log:           log,
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !b.allowed(update.Message.Chat.ID) {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Msg("handle message")
			}
		}
	}

	return nil
}

// SendDailyDigest posts today's bucket to the configured chat. It is a no-op
// when no chat is configured.
func (b *Bot) SendDailyDigest() error {
	if b.allowedChatID == 0 {
		return nil
	}
	now := b.now()
	return b.sendText(b.allowedChatID, b.digest.DaySummary(now, now))
}

func (b *Bot) allowed(chatID int64) bool {
	return b.allowedChatID == 0 || chatID == b.allowedChatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		b.log.Info().Int64("chat", msg.Chat.ID).Str("command", msg.Command()).Msg("command")
		return b.handleCommand(ctx, msg)
	}

	switch strings.TrimSpace(msg.Text) {
	case menuLabelToday:
		return b.sendDay(msg.Chat.ID, b.now())
	case menuLabelTasks:
		return b.handleListAll(msg)
	case menuLabelReport:
		return b.handleReport(msg)
	case menuLabelHelp:
		return b.handleHelp(msg)
	}

	return b.sendText(msg.Chat.ID, "I did not understand that. Try /add or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "today":
		return b.sendDay(msg.Chat.ID, b.now())
	case "day":
		return b.handleDay(msg)
	case "tasks":
		return b.handleListAll(msg)
	case "add":
		return b.handleAdd(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "report":
		return b.handleReport(msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := "there"
	if msg.From != nil && strings.TrimSpace(msg.From.FirstName) != "" {
		name = strings.TrimSpace(msg.From.FirstName)
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your daily task list.</b>\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "• /today · today's tasks\n" +
	"• /day YYYY-MM-DD · tasks of a given day\n" +
	"• /tasks · every task\n" +
	"• /add title | priority | YYYY-MM-DD | 1,3,5 · add a task (only the title is required)\n" +
	"• /done &lt;id&gt; · toggle completion\n" +
	"• /delete &lt;id&gt; · delete a task\n" +
	"• /report · today's digest"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Commands</b>\n"+helpText)
}

func (b *Bot) handleReport(msg *tgbotapi.Message) error {
	now := b.now()
	return b.sendText(msg.Chat.ID, b.digest.DaySummary(now, now))
}

func (b *Bot) handleDay(msg *tgbotapi.Message) error {
	raw := strings.TrimSpace(msg.CommandArguments())
	if raw == "" {
		return b.sendText(msg.Chat.ID, "Give a date: /day 2024-03-06")
	}
	day, err := calendar.ParseDate(raw)
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	return b.sendDay(msg.Chat.ID, day)
}

func (b *Bot) handleListAll(msg *tgbotapi.Message) error {
	tasks := b.planner.Tasks()
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "No tasks yet. Add one with /add.")
	}
	service.SortForDisplay(tasks)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>All tasks</b> (%d)\n\n", len(tasks)))
	for _, task := range tasks {
		builder.WriteString(formatListLine(task))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	in, err := parseAddArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	task, err := b.planner.Add(ctx, in)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Task not saved: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("➕ Added \"%s\" <code>%s</code>", escape(normalizeTitle(task.Title)), shortID(task.ID)))
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := resolveTaskID(b.planner.Tasks(), msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	task, err := b.planner.Toggle(ctx, id)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Task not saved: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, toggledText(task))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := resolveTaskID(b.planner.Tasks(), msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	task, err := b.planner.Find(id)
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(err.Error()))
	}
	if err := b.planner.Delete(ctx, id); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not delete the task: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Task \"%s\" deleted.", escape(normalizeTitle(task.Title))))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}
	chatID := cb.Message.Chat.ID
	if !b.allowed(chatID) {
		return nil
	}

	action, id, ok := parseCallback(cb.Data)
	if !ok {
		return nil
	}
	b.log.Info().Int64("chat", chatID).Str("action", action).Str("task", id).Msg("callback")

	switch action {
	case cbTogglePrefix:
		task, err := b.planner.Toggle(ctx, id)
		if err != nil {
			return b.sendText(chatID, fmt.Sprintf("Task not saved: %s", escape(err.Error())))
		}
		if err := b.sendText(chatID, toggledText(task)); err != nil {
			return err
		}
	case cbDeletePrefix:
		if err := b.planner.Delete(ctx, id); err != nil {
			return b.sendText(chatID, fmt.Sprintf("Could not delete the task: %s", escape(err.Error())))
		}
	}
	return b.sendDay(chatID, b.now())
}

// sendDay posts the bucket for day with one toggle/delete row per task.
func (b *Bot) sendDay(chatID int64, day time.Time) error {
	text := b.digest.DaySummary(day, b.now())
	tasks := b.planner.ForDay(day)
	if len(tasks) == 0 {
		return b.sendText(chatID, text)
	}
	service.SortForDisplay(tasks)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(taskButtons(tasks)...)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func taskButtons(tasks []model.Task) [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for _, task := range tasks {
		mark := "✅"
		if task.Status == model.StatusCompleted {
			mark = "↩️"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %s", mark, shortTitle(task.Title, 24)), cbTogglePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		))
	}
	return rows
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelReport),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func toggledText(task model.Task) string {
	if task.Status == model.StatusCompleted {
		return fmt.Sprintf("✅ \"%s\" completed.", escape(normalizeTitle(task.Title)))
	}
	return fmt.Sprintf("↩️ \"%s\" is pending again.", escape(normalizeTitle(task.Title)))
}

func formatListLine(task model.Task) string {
	var sb strings.Builder
	title := escape(normalizeTitle(task.Title))
	if task.Status == model.StatusCompleted {
		title = "<s>" + title + "</s>"
	}
	sb.WriteString(fmt.Sprintf("%s %s <code>%s</code>", service.PriorityIcon(task.Priority), title, shortID(task.ID)))
	if task.Deadline != nil {
		sb.WriteString(" · ⏰ " + calendar.FormatDate(*task.Deadline))
	}
	if task.IsRecurring() {
		sb.WriteString(" · ♻️ " + service.RepeatLabel(task.RepeatDays))
	}
	sb.WriteByte('\n')
	return sb.String()
}

var (
	errMissingID   = errors.New("give a task id: /done 1a2b3c4d")
	errAmbiguousID = errors.New("several tasks match that id, use more characters")
)

// resolveTaskID accepts a full id or a unique prefix of one.
func resolveTaskID(tasks []model.Task, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errMissingID
	}
	var match string
	for _, task := range tasks {
		if task.ID == ref {
			return task.ID, nil
		}
		if strings.HasPrefix(task.ID, ref) {
			if match != "" {
				return "", errAmbiguousID
			}
			match = task.ID
		}
	}
	if match == "" {
		return "", planner.ErrTaskNotFound
	}
	return match, nil
}

// parseAddArgs reads "title | priority | YYYY-MM-DD | 1,3,5"; trailing parts are optional.
func parseAddArgs(raw string) (planner.Input, error) {
	parts := strings.Split(raw, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	in := planner.Input{Title: parts[0]}
	if in.Title == "" {
		return planner.Input{}, errors.New("usage: /add title | priority | YYYY-MM-DD | 1,3,5")
	}
	if len(parts) > 4 {
		return planner.Input{}, errors.New("too many parts, expected at most 4")
	}
	if len(parts) > 1 && parts[1] != "" {
		in.Priority = model.Priority(strings.ToLower(parts[1]))
		if !in.Priority.Valid() {
			return planner.Input{}, planner.ErrInvalidPriority
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		deadline, err := calendar.ParseDate(parts[2])
		if err != nil {
			return planner.Input{}, err
		}
		in.Deadline = &deadline
	}
	if len(parts) > 3 && parts[3] != "" {
		days, err := model.ParseWeekdays(parts[3])
		if err != nil {
			return planner.Input{}, err
		}
		in.RepeatDays = days
	}
	return in, nil
}

func parseCallback(data string) (action, id string, ok bool) {
	for _, prefix := range []string{cbTogglePrefix, cbDeletePrefix} {
		if strings.HasPrefix(data, prefix) {
			id = strings.TrimPrefix(data, prefix)
			return prefix, id, id != ""
		}
	}
	return "", "", false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
