package conversation

import (
	"fmt"
	"html"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"simufolio/internal/domain/market"
	"simufolio/internal/domain/subscription"
	"simufolio/internal/services/portfolio"
)

// Messages are rendered for Telegram HTML parse mode: user-controlled and
// provider-controlled strings must pass through esc before interpolation.

func esc(s string) string {
	return html.EscapeString(s)
}

func usd(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.InexactFloat64())
}

func pct(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func qty(d decimal.Decimal) string {
	return d.StringFixed(8)
}

func sign(d decimal.Decimal) string {
	if d.IsNegative() {
		return ""
	}
	return "+"
}

func msgWelcome() string {
	return "Welcome to <b>SimuFolio!</b> 🚀 Ready to track your virtual gains? Choose your action:"
}

func msgMethodSelect() string {
	return "🔎 How would you like to find your investment token?"
}

func msgSearchPrompt() string {
	return "🔍 <b>Enter the full name or symbol of the coin</b> you want to simulate (e.g., <i>Bitcoin</i> or <b>ETH</b>)."
}

func msgEmptyQuery() string {
	return "Please type a coin name or symbol to search for."
}

func msgNoMatches() string {
	return "🥶 <b>Zero HODLers found.</b> No tokens match that query. Try another search term!"
}

func msgSearchResults(total int) string {
	return fmt.Sprintf("✅ Found %d results. Select the correct coin:", total)
}

func msgAssetSelected(md *market.Metadata) string {
	rank := "Unranked"
	if md.Rank > 0 {
		rank = fmt.Sprintf("#%d", md.Rank)
	}

	return fmt.Sprintf(
		"You selected <b>%s (%s)</b> (%s).\n\nCurrent Price: $%s\n\n"+
			"<b>Ready for the fiat injection?</b> 💵 Reply with the exact US Dollar amount "+
			"(e.g., <code>500</code>, <code>100.50</code>) you wish to virtually invest.",
		esc(md.Name), esc(strings.ToUpper(md.Symbol)), rank, usd(md.CurrentPrice),
	)
}

func msgInvalidAmount() string {
	return "❌ Invalid amount. Please reply with a positive number (e.g., 100)."
}

func msgStaleSession() string {
	return "❌ Session expired or incomplete. Please start a new simulation with /start."
}

func msgIntervalPrompt(assetID string, amount decimal.Decimal) string {
	return fmt.Sprintf(
		"💸 Investment Confirmation: You are minting <b>$%s</b> into <b>%s</b>.\n\nHow often should I ping your portfolio?",
		usd(amount), esc(strings.ToUpper(assetID)),
	)
}

func msgCreated(sub *subscription.Subscription) string {
	return fmt.Sprintf(
		"✅ <b>Simulation Deployed!</b> Your virtual investment is now live! ⛓️\n\n"+
			"<b>Asset:</b> %s\n<b>Initial Investment:</b> $%s\n<b>Start Price:</b> $%s\n<b>Updates:</b> %s",
		esc(strings.ToUpper(sub.AssetID)), usd(sub.InvestedAmount), usd(sub.InitialPrice), esc(string(sub.UpdateInterval)),
	)
}

func msgHistoricalFailed(assetID string) string {
	return fmt.Sprintf(
		"❌ Failed to start simulation for %s. Could not fetch historical price data. Please try again later.",
		esc(assetID),
	)
}

func msgPersistenceError() string {
	return "A database error occurred. Your simulation could not be saved."
}

func msgUpstreamDown() string {
	return "Sorry, I could not fetch coin data right now. Try again later."
}

func msgAssetNotFound() string {
	return "❌ I could not find that coin. Please pick another one."
}

func msgNoSubscriptions() string {
	return "You currently have no active simulations. Start a new one with the button below!"
}

func msgSubscriptionsHeader() string {
	return "📊 <b>Your Active Simulations:</b>"
}

func subscriptionButtonLabel(index int, sub *subscription.Subscription) string {
	return fmt.Sprintf("#%d: %s ($%s)", index+1, strings.ToUpper(sub.AssetID), sub.InvestedAmount.StringFixed(0))
}

func msgDetails(sub *subscription.Subscription, currentPrice decimal.Decimal, perf portfolio.Performance) string {
	deltaEmoji := "📉"
	if perf.Gain() {
		deltaEmoji = "📈"
	}
	plSign := sign(perf.ProfitLoss)

	return fmt.Sprintf(
		"<b>%s Live Performance: %s</b>\n\n"+
			"<b>Investment Overview:</b>\n"+
			"Initial Investment: $%s\n"+
			"Current Value: $%s\n"+
			"Profit/Loss (P&amp;L): %s$%s\n"+
			"%% Change: %s%s%%\n\n"+
			"<b>Data Points:</b>\n"+
			"Start Price (%s): $%s\n"+
			"Current Price: $%s\n"+
			"Initial Quantity: %s %s\n\n"+
			"<b>Updates:</b> %s",
		deltaEmoji, esc(strings.ToUpper(sub.AssetID)),
		usd(sub.InvestedAmount),
		usd(perf.CurrentValue),
		plSign, usd(perf.ProfitLoss),
		plSign, pct(perf.PercentChange),
		sub.StartDate.Format("2006-01-02"), usd(sub.InitialPrice),
		usd(currentPrice),
		qty(perf.Quantity), esc(strings.ToUpper(sub.AssetID)),
		esc(string(sub.UpdateInterval)),
	)
}

func msgDetailsNoPrice(sub *subscription.Subscription) string {
	return fmt.Sprintf(
		"⚠️ Could not fetch the current price for %s.\n\n<b>Simulation Data:</b>\nInitial Investment: $%s\nStart Price: $%s",
		esc(strings.ToUpper(sub.AssetID)), usd(sub.InvestedAmount), usd(sub.InitialPrice),
	)
}

func msgDetailsNotFound() string {
	return "❌ Simulation details not found. It may have been deleted."
}

func msgDeleted() string {
	return "🗑️ Simulation deleted."
}

func msgBackMain() string {
	return "Welcome back to the main menu!"
}

// RenderNotification builds the periodic performance update text sent by the
// notification sweep.
func RenderNotification(sub *subscription.Subscription, currentPrice decimal.Decimal, perf portfolio.Performance) string {
	deltaEmoji := "🔴"
	if perf.Gain() {
		deltaEmoji = "🟢"
	}
	plSign := sign(perf.ProfitLoss)

	return fmt.Sprintf(
		"%s <b>SimuFolio Update: %s</b>\nSubscription: %s\n\n"+
			"<b>Initial Investment:</b> $%s\n"+
			"<b>Current Value:</b> $%s\n"+
			"<b>Total P&amp;L:</b> %s$%s (%s%s%%)\n"+
			"Current Price: $%s\n\n"+
			"To see all details, use the /start command.",
		deltaEmoji, esc(strings.ToUpper(sub.AssetID)), esc(string(sub.UpdateInterval)),
		usd(sub.InvestedAmount),
		usd(perf.CurrentValue),
		plSign, usd(perf.ProfitLoss), plSign, pct(perf.PercentChange),
		usd(currentPrice),
	)
}
