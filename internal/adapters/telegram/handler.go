package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"simufolio/internal/services/conversation"
	"simufolio/pkg/errors"
	"simufolio/pkg/logger"
)

// handleTimeout bounds the processing of a single chat event, polling loop
// included.
const handleTimeout = 30 * time.Second

// Handler bridges raw Telegram updates and the conversation engine: it decodes
// each update into a typed event, advances the engine and renders the reply.
type Handler struct {
	bot    *Bot
	engine *conversation.Engine
	log    *logger.Logger
}

// NewHandler creates an update handler and registers it on the bot
func NewHandler(bot *Bot, engine *conversation.Engine, log *logger.Logger) *Handler {
	h := &Handler{
		bot:    bot,
		engine: engine,
		log:    log.With("component", "telegram_handler"),
	}
	bot.SetMessageHandler(h.HandleUpdate)
	return h
}

// HandleUpdate processes one incoming Telegram update
func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	log := h.log.With("chat_id", chatID)

	var event conversation.Event
	switch {
	case msg.IsCommand():
		switch msg.Command() {
		case "start":
			event = conversation.StartRequested{}
		default:
			// Unknown commands fall back to the main menu.
			event = conversation.StartRequested{}
		}
	case msg.Text != "":
		event = conversation.FreeText{Text: msg.Text}
	default:
		// Stickers, photos etc. carry nothing for the wizard.
		return
	}

	reply, err := h.engine.Advance(ctx, chatID, event)
	h.logAdvance(log, event, err)
	h.render(ctx, chatID, 0, reply)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}

	chatID := cb.Message.Chat.ID
	log := h.log.With("chat_id", chatID)

	// Acknowledge immediately so the button stops spinning even if the
	// handler below fails.
	if err := h.bot.AnswerCallback(cb.ID, ""); err != nil {
		log.Debugw("Failed to answer callback", "error", err)
	}

	event, err := conversation.DecodeCallback(cb.Data)
	if err != nil {
		log.Warnw("Dropping malformed callback", "data", cb.Data, "error", err)
		return
	}

	reply, err := h.engine.Advance(ctx, chatID, event)
	h.logAdvance(log, event, err)
	h.render(ctx, chatID, cb.Message.MessageID, reply)
}

// render delivers the engine's reply. messageID is the callback's source
// message, 0 for plain messages (Edit degrades to a fresh send then).
func (h *Handler) render(ctx context.Context, chatID int64, messageID int, reply *conversation.Reply) {
	if reply == nil {
		return
	}

	var err error
	switch {
	case reply.Edit && messageID != 0:
		err = h.bot.EditMessage(ctx, chatID, messageID, reply.Text, inlineKeyboard(reply.Keyboard))
	case reply.ForceReply:
		err = h.bot.SendForceReply(ctx, chatID, reply.Text)
	case len(reply.Keyboard) > 0:
		err = h.bot.SendMessageWithKeyboard(ctx, chatID, reply.Text, *inlineKeyboard(reply.Keyboard))
	default:
		err = h.bot.SendMessage(ctx, chatID, reply.Text)
	}

	if err != nil {
		h.log.Errorw("Failed to deliver reply", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) logAdvance(log *logger.Logger, event conversation.Event, err error) {
	switch {
	case err == nil:
		log.Debugw("Event handled", "event", event.Name())
	case errors.Is(err, errors.ErrValidation), errors.Is(err, errors.ErrStaleSession):
		// User-correctable; the reply already explains what to do.
		log.Infow("Event rejected", "event", event.Name(), "reason", err)
	default:
		log.Errorw("Event failed", "event", event.Name(), "error", err)
	}
}

// inlineKeyboard converts the engine's keyboard layout to the Telegram markup.
// Returns nil for an empty keyboard so edits can clear the buttons.
func inlineKeyboard(rows [][]conversation.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	tgRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		tgRow := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			label := strings.TrimSpace(b.Label)
			tgRow = append(tgRow, tgbotapi.NewInlineKeyboardButtonData(label, b.Data))
		}
		tgRows = append(tgRows, tgRow)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(tgRows...)
	return &markup
}
