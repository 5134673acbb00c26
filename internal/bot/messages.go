package bot

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zombor/betslip-tracker/internal/ingest"
	"github.com/zombor/betslip-tracker/internal/sheets"
)

// Callback data of the inline buttons
const (
	callbackUpload    = "upload"
	callbackViewSheet = "view_sheet"
	callbackHelp      = "help"
)

const (
	textProcessing = "🔄 Processing your betting slip..."
	textSendImage  = "Please send me an image or document containing your betting slip."
	textNoSheet    = "No sheet found. Please upload a betting slip first."
	textYourSheet  = "📊 Your betting records:"
	textSheetsDown = "❌ Could not reach Google Sheets right now.\n\nPlease try again later."
	textConnectNow = "You need to connect your Google account first to process bet slips."
	textReconnect  = "To reconnect your Google account, please click the button below:"
	textExpired    = "⚠️ Your Google authorization has expired.\n\nPlease reconnect your account to continue:"
	textLinked     = "✅ Your Google account is connected.\n\n📸 Send me a screenshot of a betting slip to start tracking."

	textWelcomeUnlinked = "👋 Welcome to Bet OCR Assistant!\n\n" +
		"To get started, I need to connect to your Google account.\n" +
		"This allows me to securely store your data in Google Sheets."
	textWelcomeLinked = "👋 Welcome to Bet OCR Assistant!\n\n" +
		"📸 Send me screenshots of your betting slips to track your bets.\n" +
		"I'll extract the data and organize it in Google Sheets.\n\n" +
		"💡 Tip: Clear, well-lit screenshots work best!"
	textUploadHint = "📸 Please send me a screenshot of your betting slip.\n" +
		"💡 Tip: Screenshots from betting apps work best!"

	textHelp = "📱 *Using Bet OCR Assistant:*\n\n" +
		"• Send screenshots of your betting slips\n" +
		"• Take screenshots directly from betting apps for best results\n" +
		"• All information will be stored in your Google Sheet\n\n" +
		"*Available commands:*\n" +
		"/start - Start the bot\n" +
		"/sheet - Access your Google Sheet\n" +
		"/export - Download your track record as Excel\n" +
		"/reauth - Reconnect your Google account\n" +
		"/help - Show this help message"
	textHowTo = "🔍 *How to use this bot:*\n\n" +
		"1. Upload a photo of your betting slip\n" +
		"2. I'll extract the information and save it\n" +
		"3. View your betting history in Google Sheets\n\n" +
		"*Tips for best results:*\n" +
		"• Make sure the image is clear and well-lit\n" +
		"• All text should be readable\n" +
		"• Include all betting information in the image"
)

var commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Start the bot"},
	{Command: "help", Description: "Get help using the bot"},
	{Command: "sheet", Description: "Get your Google Sheet link"},
	{Command: "export", Description: "Download your track record as Excel"},
	{Command: "reauth", Description: "Reconnect your Google account"},
}

func urlKeyboard(label, target string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(label, target)),
	)
	return &kb
}

func menuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📸 Upload Bet Slip", callbackUpload),
			tgbotapi.NewInlineKeyboardButtonData("📑 View Sheet", callbackViewSheet),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❔ Help", callbackHelp),
		),
	)
	return &kb
}

// reply is one rendered chat message
type reply struct {
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

// render turns an ingestion result into the single message the user sees
func render(res ingest.Result) reply {
	switch res.Outcome {
	case ingest.OutcomeLinkRequired:
		if res.Err != nil {
			return reply{textExpired, urlKeyboard("🔄 Reconnect Google Account", res.LinkURL)}
		}
		return reply{textConnectNow, urlKeyboard("🔗 Connect Google Account", res.LinkURL)}
	case ingest.OutcomeWritten:
		return reply{
			"✅ Betting slip processed successfully!\n\n📌 You can send more betting slips directly anytime!",
			urlKeyboard("📑 View Sheet", res.SheetURL),
		}
	case ingest.OutcomeFetchFailed:
		return reply{text: fmt.Sprintf("❌ Error processing file: %v\n\nPlease try again with a different image format.", res.Err)}
	case ingest.OutcomeOCRFailed:
		return reply{text: fmt.Sprintf("❌ Error during OCR processing: %v\n\nPlease try again with a clearer image.", res.Err)}
	case ingest.OutcomeUnreadable:
		return reply{text: "❌ I couldn't read the betting details from this image.\n\nPlease try again with a clearer image."}
	case ingest.OutcomeAuthUnavailable:
		return reply{text: "⚠️ Google could not confirm your authorization right now.\n\nPlease try again later."}
	case ingest.OutcomeWriteFailed:
		return reply{text: fmt.Sprintf("❌ Error updating sheet: %s\n\nPlease try again later.", writeDetail(res.Err))}
	default:
		return reply{text: "❌ Something went wrong while processing your betting slip.\n\nPlease try again later."}
	}
}

func writeDetail(err error) string {
	var writeErr *sheets.WriteError
	if errors.As(err, &writeErr) {
		return writeErr.Detail
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
