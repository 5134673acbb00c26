package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zombor/betslip-tracker/internal/credential"
	"github.com/zombor/betslip-tracker/internal/export"
)

const exportFilename = "track_record.xlsx"

func (b *Bot) start(ctx context.Context, chatID int64, userID string) {
	if !b.accounts.IsLinked(ctx, userID) {
		b.send(chatID, reply{textWelcomeUnlinked, urlKeyboard("🔗 Connect Google Account", b.accounts.LinkURL(userID))})
		return
	}
	b.send(chatID, reply{textWelcomeLinked, menuKeyboard()})
}

func (b *Bot) reauth(ctx context.Context, chatID int64, userID string) {
	if err := b.accounts.Invalidate(ctx, userID); err != nil {
		slog.Error("Failed to delete token during reauth", "user_id", userID, "error", err)
	}
	b.send(chatID, reply{textReconnect, urlKeyboard("Connect Google Account", b.accounts.LinkURL(userID))})
}

func (b *Bot) sheet(ctx context.Context, chatID int64, userID string) {
	link, found, err := b.sheets.SheetLink(ctx, userID)
	if err != nil {
		b.sheetsError(ctx, chatID, userID, err)
		return
	}
	if !found {
		b.send(chatID, reply{text: textNoSheet})
		return
	}
	b.send(chatID, reply{textYourSheet, urlKeyboard("📑 Open Sheet", link)})
}

func (b *Bot) export(ctx context.Context, chatID int64, userID string) {
	rows, err := b.sheets.Rows(ctx, userID)
	if err != nil {
		b.sheetsError(ctx, chatID, userID, err)
		return
	}
	if len(rows) == 0 {
		b.send(chatID, reply{text: textNoSheet})
		return
	}

	data, err := export.XLSX(rows)
	if err != nil {
		slog.Error("Failed to build export", "user_id", userID, "error", err)
		b.send(chatID, reply{text: "❌ Could not build the export file.\n\nPlease try again later."})
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: exportFilename, Bytes: data})
	doc.Caption = "📊 Your track record"
	if _, err := b.api.Send(doc); err != nil {
		slog.Error("Failed to send export", "user_id", userID, "error", err)
	}
}

// sheetsError answers a failed sheet lookup. Credential problems ask for a
// new link, like the upload path does.
func (b *Bot) sheetsError(ctx context.Context, chatID int64, userID string, err error) {
	authErr, ok := credential.AsAuthRequired(err)
	if !ok || authErr.Reason == credential.ReasonUnavailable {
		slog.Error("Failed to read sheet", "user_id", userID, "error", err)
		b.send(chatID, reply{text: textSheetsDown})
		return
	}

	if authErr.Reason == credential.ReasonMissing && !b.accounts.IsLinked(ctx, userID) {
		b.send(chatID, reply{textConnectNow, urlKeyboard("🔗 Connect Google Account", b.accounts.LinkURL(userID))})
		return
	}

	if ierr := b.accounts.Invalidate(ctx, userID); ierr != nil {
		slog.Error("Failed to invalidate credential", "user_id", userID, "error", ierr)
	}
	b.send(chatID, reply{textExpired, urlKeyboard("🔄 Reconnect Google Account", b.accounts.LinkURL(userID))})
}
