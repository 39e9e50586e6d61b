// Package telegram is the chat front end: photos and food names build a
// pending meal that the user refines with inline buttons and then logs.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"meal-estimator/internal/app"
	"meal-estimator/internal/config"
	"meal-estimator/internal/estimate"
	"meal-estimator/internal/metrics"
	"meal-estimator/internal/nutrition"
	"meal-estimator/internal/session"
	"meal-estimator/internal/vision"
)

// Callback actions, encoded as "action|payload" in button data.
const (
	actionToggle  = "toggle"
	actionAnswer  = "ans"
	actionLog     = "log"
	actionDiscard = "discard"
)

const requestTimeout = 2 * time.Minute

// botAPI is the part of the Telegram client the bot uses.
type botAPI interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot wraps the Telegram API and the meal application.
type Bot struct {
	api      botAPI
	app      *app.App
	metrics  *metrics.Store
	cfg      *config.Config
	sessions *sessionRegistry
	http     *http.Client
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, application *app.App, metricsStore *metrics.Store, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("response", resp.Description))

	return newBot(api, cfg, application, metricsStore, logger), nil
}

func newBot(api botAPI, cfg *config.Config, application *app.App, metricsStore *metrics.Store, logger *zap.Logger) *Bot {
	return &Bot{
		api:      api,
		app:      application,
		metrics:  metricsStore,
		cfg:      cfg,
		sessions: newSessionRegistry(defaultSessionTTL, application.NewSession),
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Wait blocks until in-flight updates are processed.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// CleanupSessions drops pending meals nobody touched within the TTL.
func (b *Bot) CleanupSessions() int {
	n := b.sessions.cleanupExpired()
	if n > 0 {
		b.logger.Info("expired pending meals removed", zap.Int("count", n))
	}
	return n
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		return
	}

	var from *tgbotapi.User
	switch {
	case update.CallbackQuery != nil:
		from = update.CallbackQuery.From
	case update.Message != nil:
		from = update.Message.From
	default:
		return
	}

	if from == nil || !b.isAllowed(from.ID) {
		if from != nil {
			b.logger.Warn("unauthorized access attempt", zap.Int64("user_id", from.ID), zap.String("username", from.UserName))
		}
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if update.CallbackQuery != nil {
			b.handleCallbackQuery(update.CallbackQuery)
			return
		}
		b.processMessage(update.Message)
	}()
}

func (b *Bot) isAllowed(id int64) bool {
	for _, allowed := range b.cfg.TelegramAllowedUserIDs {
		if id == allowed {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	userID := strconv.FormatInt(msg.From.ID, 10)

	switch {
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg, userID)
	case msg.IsCommand():
		b.handleCommand(ctx, msg, userID)
	case isURL(msg.Text):
		b.handleURL(ctx, msg, userID)
	case strings.TrimSpace(msg.Text) != "":
		b.handleFoodText(ctx, msg, userID)
	}
}

func isURL(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://")
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, userID string) {
	sent, err := b.sendMarkdown(msg.Chat.ID, "🔍 *Analyzing your meal...*")
	if err != nil {
		b.logger.Error("failed to send initial reply", zap.Error(err))
		return
	}

	photo := msg.Photo[len(msg.Photo)-1]
	data, mimeType, err := b.downloadPhoto(ctx, photo.FileID)
	if err != nil {
		b.logger.Error("failed to download photo", zap.String("user_id", userID), zap.Error(err))
		b.editMarkdown(msg.Chat.ID, sent.MessageID, formatError("downloading photo", err), nil)
		return
	}

	cs := b.sessions.acquire(userID)
	defer cs.mu.Unlock()

	view, err := b.app.ScanMeal(ctx, userID, cs.s, data, mimeType, msg.Caption)
	cs.notes = nil
	if err != nil {
		problems, ok := app.ItemProblems(err)
		if !ok || view.ItemCount == 0 {
			b.logger.Error("failed to scan meal", zap.String("user_id", userID), zap.Error(err))
			text := formatError("scanning meal", err)
			if errors.Is(err, vision.ErrNoFood) {
				text = "🤔 I couldn't find any food in that photo. Try another angle or type the food, e.g. `rice 150g`."
			}
			b.editMarkdown(msg.Chat.ID, sent.MessageID, text, nil)
			return
		}
		cs.notes = itemNotes(problems)
	}

	cs.cardID = sent.MessageID
	b.editCard(msg.Chat.ID, cs)
}

// itemNotes turns per-item scan problems into card notes.
func itemNotes(problems []error) []string {
	var notes []string
	for _, e := range problems {
		var missing *session.MissingNutritionError
		if errors.As(e, &missing) {
			notes = append(notes, "No nutrition found for "+missing.ItemName+". Type it with an amount to replace it.")
			continue
		}
		var verr *session.ValidationError
		if errors.As(e, &verr) {
			notes = append(notes, "Skipped an item: "+verr.Reason+". Type it with an amount to add it.")
		}
	}
	return notes
}

func (b *Bot) handleFoodText(ctx context.Context, msg *tgbotapi.Message, userID string) {
	query, portion, err := nutrition.SplitPortion(msg.Text)
	if err != nil {
		b.sendMarkdown(msg.Chat.ID, "✍️ Tell me the amount too, e.g. `greek yogurt 170g` or `oats 1 cup`.")
		return
	}

	cs := b.sessions.acquire(userID)
	defer cs.mu.Unlock()

	if _, _, err := b.app.AddFromQuery(ctx, cs.s, query, portion); err != nil {
		b.replyError(msg.Chat.ID, "adding food", err)
		return
	}
	b.sendCard(msg.Chat.ID, cs)
}

func (b *Bot) handleURL(ctx context.Context, msg *tgbotapi.Message, userID string) {
	fields := strings.Fields(msg.Text)
	rawURL := fields[0]
	portion := nutrition.Portion{Quantity: 1, Unit: nutrition.UnitServing}
	if len(fields) > 1 {
		p, err := nutrition.ParsePortion(strings.Join(fields[1:], " "))
		if err != nil {
			b.sendMarkdown(msg.Chat.ID, "🔗 Put the amount after the link, e.g. `https://... 150g`.")
			return
		}
		portion = p
	}

	sent, err := b.sendMarkdown(msg.Chat.ID, "✂️ *Reading nutrition from the page...*")
	if err != nil {
		b.logger.Error("failed to send initial reply", zap.Error(err))
		return
	}

	cs := b.sessions.acquire(userID)
	defer cs.mu.Unlock()

	if _, _, err := b.app.AddFromURL(ctx, cs.s, rawURL, portion); err != nil {
		b.logger.Warn("failed to add food from page", zap.String("url", rawURL), zap.Error(err))
		b.editMarkdown(msg.Chat.ID, sent.MessageID, formatError("reading page", err), nil)
		return
	}
	cs.cardID = sent.MessageID
	b.editCard(msg.Chat.ID, cs)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, userID string) {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.sendMarkdown(chatID, helpText)
	case "metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.sendMarkdown(chatID, "⛔ *Access Denied*: Admin only.")
			return
		}
		b.handleMetricsCommand(ctx, chatID)
	case "today":
		sum, err := b.app.Today(ctx, userID)
		if err != nil {
			b.replyError(chatID, "loading today", err)
			return
		}
		b.sendMarkdown(chatID, formatSummary(sum))
	case "history":
		meals, err := b.app.History(ctx, userID, 5)
		if err != nil {
			b.replyError(chatID, "loading history", err)
			return
		}
		b.sendMarkdown(chatID, formatHistory(meals))
	case "grams", "remove", "type", "log", "cancel":
		b.handleSessionCommand(ctx, msg.Command(), args, chatID, userID)
	default:
		b.sendMarkdown(chatID, "Unknown command. Send /help for the list.")
	}
}

func (b *Bot) handleSessionCommand(ctx context.Context, cmd string, args []string, chatID int64, userID string) {
	cs := b.sessions.acquire(userID)
	defer cs.mu.Unlock()

	var err error
	switch cmd {
	case "grams":
		err = b.setGrams(cs, args)
	case "remove":
		var it nutrition.FoodItem
		if it, err = itemAt(cs, args); err == nil {
			_, err = cs.s.RemoveItem(it.ID)
		}
	case "type":
		var mt session.MealType
		if len(args) != 1 {
			err = fmt.Errorf("usage: /type breakfast|lunch|snack|dinner")
		} else if mt, err = session.ParseMealType(args[0]); err == nil {
			_, err = cs.s.SetMealType(mt)
		}
	case "log":
		b.logMeal(ctx, chatID, 0, userID, cs)
		return
	case "cancel":
		cs.s.Discard()
		cs.notes = nil
		b.sendMarkdown(chatID, "🗑 Pending meal discarded.")
		return
	}
	if err != nil {
		b.replyError(chatID, "updating meal", err)
		return
	}
	b.sendCard(chatID, cs)
}

func (b *Bot) setGrams(cs *chatSession, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: /grams <item number> <amount>")
	}
	it, err := itemAt(cs, args[:1])
	if err != nil {
		return err
	}
	p, err := nutrition.ParsePortion(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	grams, err := p.Grams(nil)
	if err != nil {
		return err
	}
	_, err = cs.s.SetGrams(it.ID, grams)
	return err
}

func itemAt(cs *chatSession, args []string) (nutrition.FoodItem, error) {
	if len(args) == 0 {
		return nutrition.FoodItem{}, fmt.Errorf("tell me the item number")
	}
	n, err := strconv.Atoi(args[0])
	items := cs.s.Items()
	if err != nil || n < 1 || n > len(items) {
		return nutrition.FoodItem{}, fmt.Errorf("no item number %s", args[0])
	}
	return items[n-1], nil
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	userID := strconv.FormatInt(query.From.ID, 10)

	parts := strings.SplitN(query.Data, "|", 3)
	if len(parts) < 2 {
		return
	}

	cs := b.sessions.acquire(userID)
	defer cs.mu.Unlock()

	if cs.cardID != messageID {
		b.editMarkdown(chatID, messageID, "⌛ This meal card is outdated.", nil)
		return
	}

	var err error
	switch parts[0] {
	case actionToggle:
		_, err = cs.s.ToggleInclude(parts[1])
	case actionAnswer:
		if len(parts) == 3 {
			_, err = cs.s.SetAnswer(estimate.QuestionKey(parts[1]), parts[2])
		}
	case actionLog:
		b.logMeal(ctx, chatID, messageID, userID, cs)
		return
	case actionDiscard:
		cs.s.Discard()
		cs.notes = nil
		cs.cardID = 0
		b.editMarkdown(chatID, messageID, "🗑 Pending meal discarded.", nil)
		return
	default:
		return
	}
	if err != nil {
		b.logger.Warn("callback failed", zap.String("data", query.Data), zap.Error(err))
	}
	b.editCard(chatID, cs)
}

// logMeal commits the pending meal. With a messageID the card is edited in
// place, otherwise a new message is sent.
func (b *Bot) logMeal(ctx context.Context, chatID int64, messageID int, userID string, cs *chatSession) {
	rec, err := b.app.LogMeal(ctx, userID, cs.s)
	if err != nil {
		var perr *session.PersistenceError
		if errors.As(err, &perr) {
			b.sendAdminAlert(fmt.Sprintf("⚠️ *Meal logging failed*\nUser: %s\n%s", userID, escape(perr.Error())))
		}
		b.replyError(chatID, "logging meal", err)
		return
	}

	cs.notes = nil
	cs.cardID = 0
	if messageID != 0 {
		b.editMarkdown(chatID, messageID, formatLogged(rec), nil)
		return
	}
	b.sendMarkdown(chatID, formatLogged(rec))
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	usage, err := b.metrics.GetDailyUsage(ctx, 7)
	if err != nil {
		b.logger.Error("failed to fetch metrics", zap.Error(err))
		b.api.Send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}
	health := metrics.GetSysHealth(b.cfg.DatabasePath, b.cfg.PhotoStoragePath)
	b.sendMarkdown(chatID, formatMetrics(usage, health))
}

func (b *Bot) downloadPhoto(ctx context.Context, fileID string) ([]byte, string, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("file download failed with status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, vision.MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > vision.MaxImageBytes {
		return nil, "", fmt.Errorf("photo is larger than %d MB", vision.MaxImageBytes>>20)
	}

	mimeType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}
	return data, mimeType, nil
}

func (b *Bot) sendCard(chatID int64, cs *chatSession) {
	v := cs.s.View()
	msg := tgbotapi.NewMessage(chatID, formatCard(v, cs.s.Items(), cs.notes))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb := cardKeyboard(v, cs.s.Items(), cs.s.Answers()); kb != nil {
		msg.ReplyMarkup = kb
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		b.logger.Error("failed to send meal card", zap.Error(err))
		return
	}
	cs.cardID = sent.MessageID
}

func (b *Bot) editCard(chatID int64, cs *chatSession) {
	v := cs.s.View()
	b.editMarkdown(chatID, cs.cardID, formatCard(v, cs.s.Items(), cs.notes), cardKeyboard(v, cs.s.Items(), cs.s.Answers()))
}

func (b *Bot) sendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return b.api.Send(msg)
}

func (b *Bot) editMarkdown(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = kb
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("failed to edit message", zap.Int("message_id", messageID), zap.Error(err))
	}
}

func (b *Bot) replyError(chatID int64, action string, err error) {
	b.sendMarkdown(chatID, formatError(action, err))
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	b.sendMarkdown(b.cfg.AdminTelegramID, text)
}
