package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/campuschat/internal/gateway"
	"github.com/user/campuschat/internal/session"
	"github.com/user/campuschat/internal/types"
)

const maxTelegramMessage = 4096

// Adapter bridges Telegram chats to the gateway. Each chat is its own
// identity with the configured role.
type Adapter struct {
	bot     *tgbotapi.BotAPI
	gateway *gateway.Gateway
	role    types.UserRole
}

// New creates a Telegram adapter. Chats are treated as role (Guest when
// empty); the bot never carries portal credentials of its own.
func New(token string, gw *gateway.Gateway, role types.UserRole) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	if role == "" {
		role = types.RoleGuest
	}
	return &Adapter{
		bot:     bot,
		gateway: gw,
		role:    role,
	}, nil
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)
	slog.Info("telegram bot started", "username", a.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if update.Message.IsCommand() {
				a.handleCommand(ctx, update.Message)
				continue
			}
			// Requests block until answered; chats must not stall each other.
			go a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	user := buildUser(msg.From, msg.Chat.ID, a.role)

	a.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	reply, err := a.gateway.Submit(ctx, user, msg.Text)
	switch {
	case errors.Is(err, gateway.ErrBusy):
		a.sendResponse(chatID, "I'm still answering your previous question. Please wait a moment.")
	case errors.Is(err, gateway.ErrEmptyMessage), errors.Is(err, gateway.ErrClosed):
		return
	case reply != nil:
		a.sendResponse(chatID, reply.Content)
	case err != nil:
		slog.Error("telegram submit failed", "chat_id", chatID, "error", err)
		a.sendResponse(chatID, "Sorry, I encountered an error processing your message.")
	}
}

func (a *Adapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	user := buildUser(msg.From, msg.Chat.ID, a.role)

	switch msg.Command() {
	case "start":
		a.sendResponse(chatID, session.WelcomeText(user, nil))

	case "clear":
		c, err := a.gateway.Resolve(ctx, user)
		if err != nil {
			a.sendResponse(chatID, "Error clearing the conversation.")
			return
		}
		if err := c.Session().Clear(ctx); err != nil {
			slog.Error("telegram clear failed", "chat_id", chatID, "error", err)
			a.sendResponse(chatID, "Error clearing the conversation.")
			return
		}
		a.sendResponse(chatID, "Conversation cleared.\n\n"+session.WelcomeText(user, nil))

	case "cancel":
		if c, err := a.gateway.Resolve(ctx, user); err == nil {
			c.Cancel()
		}

	case "status":
		c, err := a.gateway.Resolve(ctx, user)
		if err != nil {
			a.sendResponse(chatID, "Error fetching status.")
			return
		}
		a.sendResponse(chatID, statusText(c))

	default:
		a.sendResponse(chatID, "Unknown command. Available: /start, /clear, /cancel, /status")
	}
}

func statusText(c *gateway.Coordinator) string {
	return fmt.Sprintf("Identity: %s\nState: %s\nMessages: %d",
		c.Session().Key(), c.State(), len(c.Session().Messages()))
}

func (a *Adapter) sendResponse(chatID int64, text string) {
	parts := splitMessage(text)
	for _, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := a.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := a.bot.Send(msg); err != nil {
				slog.Error("send message failed", "chat_id", chatID, "error", err)
			}
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}

func buildUser(from *tgbotapi.User, chatID int64, role types.UserRole) *types.User {
	u := &types.User{
		ID:   string(buildIdentity(from, chatID)),
		Role: role,
	}
	if from != nil {
		u.Name = strings.TrimSpace(from.FirstName + " " + from.LastName)
	}
	return u
}

func buildIdentity(from *tgbotapi.User, chatID int64) types.IdentityKey {
	var userID int64
	if from != nil {
		userID = from.ID
	}
	return types.NewIdentityKey("telegram",
		strconv.FormatInt(userID, 10),
		strconv.FormatInt(chatID, 10),
	)
}
