// Package telegram exposes the chat playground as a Telegram bot with one
// conversation per chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"llm-chat-playground/internal/config"
	"llm-chat-playground/internal/domain"
	"llm-chat-playground/internal/usecase/chat"
)

const chunkSize = 2048

// Chat is the exchange contract the bot drives.
type Chat interface {
	Submit(ctx context.Context, sessionID, text string) (domain.Turn, error)
	Reset(sessionID string)
	End(sessionID string)
	Status() error
	Vendor() config.VendorConfig
}

type Bot struct {
	api  *tgbotapi.BotAPI
	cfg  config.Config
	chat Chat
	log  *slog.Logger
}

func NewBot(cfg config.Config, chatSvc Chat) (*Bot, error) {
	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	return &Bot{
		api:  api,
		cfg:  cfg,
		chat: chatSvc,
		log:  slog.Default().With("component", "telegram", "bot", api.Self.UserName),
	}, nil
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.log.Info("bot started", "vendor", b.chat.Vendor().Name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			msg := update.Message
			if msg.From == nil {
				continue
			}
			go b.handleMessage(ctx, msg)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !isAllowedUser(msg.From.ID, b.cfg) {
		b.log.Warn("access denied", "user_id", msg.From.ID)
		b.sendText(msg.Chat.ID, msg.MessageID, "access denied")
		return
	}

	if !msg.IsCommand() && strings.TrimSpace(msg.Text) != "" {
		b.sendChatAction(msg.Chat.ID)
	}

	if reply := b.respond(ctx, msg); reply != "" {
		b.sendText(msg.Chat.ID, msg.MessageID, reply)
	}
}

// respond computes the bot's answer to one incoming message. An empty
// result means nothing is sent.
func (b *Bot) respond(ctx context.Context, msg *tgbotapi.Message) string {
	sid := sessionID(msg.Chat.ID)

	switch msg.Command() {
	case "start", "help":
		return helpText(b.chat.Vendor(), b.chat.Status())
	case "reset":
		b.chat.Reset(sid)
		return "Conversation cleared."
	case "stop":
		b.chat.End(sid)
		return "Session ended. Send a message to start a new one."
	case "":
	default:
		return "Unknown command. Try /help."
	}

	turn, err := b.chat.Submit(ctx, sid, msg.Text)
	switch {
	case err == nil:
		return turn.Content
	case errors.Is(err, chat.ErrEmptyMessage):
		return ""
	case errors.Is(err, chat.ErrExchangeInProgress):
		return "Still waiting for the previous answer."
	case errors.Is(err, domain.ErrNotConnected):
		return fmt.Sprintf("%s API is not connected: %s", b.chat.Vendor().DisplayName, domain.Diagnostic(err))
	default:
		return "Response generation failed: " + domain.Diagnostic(err)
	}
}

func (b *Bot) sendText(chatID int64, replyTo int, text string) {
	chunks := splitText(text, chunkSize)
	for idx, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if idx == 0 {
			msg.ReplyToMessageID = replyTo
		}
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("failed to send reply", "chat_id", chatID, "error", err)
		}
	}
}

func (b *Bot) sendChatAction(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.Debug("failed to send chat action", "chat_id", chatID, "error", err)
	}
}

func sessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func helpText(vendor config.VendorConfig, status error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s API test\n", vendor.Emoji, vendor.DisplayName)
	if vendor.Tagline != "" {
		sb.WriteString(vendor.Tagline + "\n")
	}
	sb.WriteString("\n")

	if status != nil {
		fmt.Fprintf(&sb, "❌ %s API connection failed: %s\n", vendor.DisplayName, domain.Diagnostic(status))
		return sb.String()
	}
	fmt.Fprintf(&sb, "✅ %s API connected\n\n", vendor.DisplayName)
	sb.WriteString("Send any message to chat. /reset clears the conversation, /stop ends the session.\n")
	for i, tip := range vendor.Tips {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, tip)
	}
	return sb.String()
}

func isAllowedUser(userID int64, cfg config.Config) bool {
	for _, id := range cfg.AdminUserIDs {
		if id == userID {
			return true
		}
	}

	if len(cfg.AllowedUserIDs) == 0 {
		return true
	}

	for _, id := range cfg.AllowedUserIDs {
		if id == userID {
			return true
		}
	}

	return false
}

func splitText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/chunkSize+1)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
