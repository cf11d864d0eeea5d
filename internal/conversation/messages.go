package conversation

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/m3rciful/zonebot/internal/broadcast"
	"github.com/m3rciful/zonebot/internal/domain"
	"github.com/m3rciful/zonebot/internal/stats"
)

const (
	msgPasswordPrompt  = "Enter admin password:"
	msgPasswordWrong   = "Wrong password, try again:"
	msgPasswordOK      = "Password correct. You can now edit the database."
	msgChooseCoin      = "Choose a coin:"
	msgPricePrompt     = "Enter the price:"
	msgImagePrompt     = "Now, please send the new image for this coin and timeframe:"
	msgInvalidNumber   = "Please enter a valid number."
	msgImageUpdated    = "Image updated successfully."
	msgUnauthorized    = "You are not authorized to use this command."
	msgBroadcastPrompt = "Enter the message you want to send to all users:"
	msgGenericFailure  = "Something went wrong. Please try again."
	labelAdmin         = "Admin"
	labelUser          = "User"
	labelBack          = "Go Back"
)

// UnauthorizedText is the fixed reply to non-administrators.
const UnauthorizedText = msgUnauthorized

// riskHint is the suggested stop-loss and take-profit, in percent of the zone price.
type riskHint struct {
	stopLoss   float64
	takeProfit float64
}

var riskHints = map[domain.Window]riskHint{
	domain.WindowDay:   {stopLoss: 1.3, takeProfit: 4},
	domain.WindowWeek:  {stopLoss: 3, takeProfit: 10},
	domain.WindowMonth: {stopLoss: 14, takeProfit: 44},
}

var printer = message.NewPrinter(language.English)

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func backRow() []Button {
	return []Button{{Text: labelBack, Token: TokenBack}}
}

func backKeyboard() Keyboard {
	return Keyboard{backRow()}
}

func roleKeyboard(admin bool) Keyboard {
	if admin {
		return Keyboard{{{Text: labelAdmin, Token: TokenAdmin}, {Text: labelUser, Token: TokenUser}}}
	}
	return Keyboard{{{Text: labelUser, Token: TokenUser}}}
}

func coinKeyboard(items []string) Keyboard {
	kb := make(Keyboard, 0, len(items)+1)
	for _, id := range items {
		kb = append(kb, []Button{{Text: id, Token: id}})
	}
	return append(kb, backRow())
}

func windowKeyboard() Keyboard {
	kb := make(Keyboard, 0, len(domain.Windows)+1)
	for _, w := range domain.Windows {
		kb = append(kb, []Button{{Text: w.Label(), Token: string(w)}})
	}
	return append(kb, backRow())
}

func selectedText(item string) string {
	return fmt.Sprintf("Selected %s. Choose timeframe:", item)
}

func updatingPriceText(item string, w domain.Window, price float64) string {
	return fmt.Sprintf("Updating price for %s (%s) to: %s", item, w, formatPrice(price))
}

func noSignalText(item string, w domain.Window) string {
	return fmt.Sprintf("There is no zone for %s (%s) yet. Choose another timeframe:", item, w)
}

// DeliveryCaption renders the caption sent with a zone image.
func DeliveryCaption(item string, w domain.Window, price float64) string {
	hint := riskHints[w]
	return fmt.Sprintf(
		"Based on the analysis of recent weeks, the best buy zone for %s (%s) is: %s $"+
			"\n\n\nYou can set a stop-loss of %s%% from this price, and a take-profit of %s%%.",
		item, w, formatPrice(price), formatPrice(hint.stopLoss), formatPrice(hint.takeProfit),
	)
}

// StatsText renders a statistics snapshot for an administrator.
func StatsText(s stats.Snapshot) string {
	return printer.Sprintf("Total requests: %d\nTotal users: %d\n\nToday: %d\nThis week: %d\nThis month: %d",
		s.Total, s.Audience, s.Day, s.Week, s.Month)
}

// BroadcastText reports a finished broadcast. The leading count is the
// number of recipients a send was attempted for.
func BroadcastText(r broadcast.Result) string {
	return printer.Sprintf("Message sent to %d users.\nDelivered: %d, failed: %d.", r.Attempted, r.Delivered, r.Failed)
}
