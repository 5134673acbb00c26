package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zombor/betslip-tracker/internal/ingest"
)

// Sender is the part of *tgbotapi.BotAPI the bot talks to
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Ingester runs one upload through the pipeline
type Ingester interface {
	Ingest(ctx context.Context, up ingest.Upload) ingest.Result
}

// Accounts is the part of the credential manager the commands need
type Accounts interface {
	IsLinked(ctx context.Context, userID string) bool
	Invalidate(ctx context.Context, userID string) error
	LinkURL(userID string) string
}

// SheetReader looks up a user's track-record sheet
type SheetReader interface {
	SheetLink(ctx context.Context, userID string) (string, bool, error)
	Rows(ctx context.Context, userID string) ([][]string, error)
}

// Bot routes chat updates to commands and the ingestion pipeline
type Bot struct {
	api      Sender
	ingester Ingester
	accounts Accounts
	sheets   SheetReader
	images   ImageSource
}

// New creates a Bot that downloads images with the default HTTP client
func New(api Sender, ingester Ingester, accounts Accounts, sheets SheetReader) *Bot {
	return NewWithDeps(api, ingester, accounts, sheets, &telegramImages{api: api})
}

// NewWithDeps creates a Bot with a custom image source for testing
func NewWithDeps(api Sender, ingester Ingester, accounts Accounts, sheets SheetReader, images ImageSource) *Bot {
	return &Bot{
		api:      api,
		ingester: ingester,
		accounts: accounts,
		sheets:   sheets,
		images:   images,
	}
}

// RegisterCommands publishes the command menu
func (b *Bot) RegisterCommands() error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("setting bot commands: %w", err)
	}
	return nil
}

// Run handles updates until ctx is cancelled or the channel closes. Each
// update is handled on its own goroutine; Run waits for them before
// returning.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate processes a single update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Update handler panicked", "update_id", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := userKey(msg.From.ID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.start(ctx, chatID, userID)
		case "help":
			b.sendMarkdown(chatID, textHelp)
		case "sheet":
			b.sheet(ctx, chatID, userID)
		case "export":
			b.export(ctx, chatID, userID)
		case "reauth":
			b.reauth(ctx, chatID, userID)
		default:
			b.send(chatID, reply{text: "Unknown command. Use /help to see available commands."})
		}
		return
	}

	img, ok := b.imageFrom(msg)
	if !ok {
		b.send(chatID, reply{text: textSendImage})
		return
	}
	b.ingest(ctx, chatID, userID, img)
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		slog.Warn("Failed to answer callback", "error", err)
	}
	if q.From == nil {
		return
	}

	chatID := q.From.ID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}
	userID := userKey(q.From.ID)

	switch q.Data {
	case callbackUpload:
		b.send(chatID, reply{text: textUploadHint})
	case callbackViewSheet:
		b.sheet(ctx, chatID, userID)
	case callbackHelp:
		b.sendMarkdown(chatID, textHowTo)
	default:
		slog.Warn("Unknown callback", "data", q.Data, "user_id", userID)
	}
}

// imageFrom picks the largest photo size or an image/PDF document
func (b *Bot) imageFrom(msg *tgbotapi.Message) (ingest.Image, bool) {
	if n := len(msg.Photo); n > 0 {
		return b.images.Image(msg.Photo[n-1].FileID, "image/jpeg"), true
	}
	if doc := msg.Document; doc != nil {
		if doc.MimeType == "" || strings.HasPrefix(doc.MimeType, "image/") || doc.MimeType == "application/pdf" {
			return b.images.Image(doc.FileID, doc.MimeType), true
		}
	}
	return nil, false
}

// ingest runs the pipeline. The processing notice goes out only once the
// user is known to be linked, and the final result replaces it.
func (b *Bot) ingest(ctx context.Context, chatID int64, userID string, img ingest.Image) {
	var ackID int
	res := b.ingester.Ingest(ctx, ingest.Upload{
		UserID: userID,
		Image:  img,
		Accepted: func(context.Context) {
			sent, err := b.api.Send(tgbotapi.NewMessage(chatID, textProcessing))
			if err != nil {
				slog.Warn("Failed to send processing notice", "user_id", userID, "error", err)
				return
			}
			ackID = sent.MessageID
		},
	})

	out := render(res)
	if ackID == 0 {
		b.send(chatID, out)
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, ackID, out.text)
	edit.ReplyMarkup = out.keyboard
	if _, err := b.api.Send(edit); err != nil {
		slog.Warn("Failed to edit processing notice, sending result", "user_id", userID, "outcome", res.Outcome.String(), "error", err)
		b.send(chatID, out)
	}
}

// NotifyLinked tells a user their account link completed. Private chat IDs
// equal user IDs.
func (b *Bot) NotifyLinked(_ context.Context, userID string) {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		slog.Warn("Cannot notify non-numeric user", "user_id", userID)
		return
	}
	b.send(chatID, reply{textLinked, menuKeyboard()})
}

func (b *Bot) send(chatID int64, r reply) {
	msg := tgbotapi.NewMessage(chatID, r.text)
	if r.keyboard != nil {
		msg.ReplyMarkup = *r.keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}
