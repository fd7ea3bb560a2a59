package conversation

// Button is one inline keyboard button: a label and a callback payload
// that DecodeCallback understands.
type Button struct {
	Label string
	Data  string
}

// Reply is the transport-agnostic outcome of advancing the conversation.
// The Telegram adapter renders it into an actual message.
type Reply struct {
	Text       string
	Keyboard   [][]Button // rows of buttons, nil for plain text
	ForceReply bool       // request a forced reply (amount prompt)
	Edit       bool       // edit the triggering message instead of sending a new one
}

func row(buttons ...Button) []Button {
	return buttons
}

func mainMenuKeyboard() [][]Button {
	return [][]Button{
		row(Button{Label: "🚀 Start New Simulation", Data: cbStartSim}),
		row(Button{Label: "📊 View My Subscriptions", Data: cbViewSubs}),
	}
}

func methodKeyboard() [][]Button {
	return [][]Button{
		row(Button{Label: "🔍 Search by Name/Symbol", Data: cbStartSearch}),
		row(Button{Label: "🔽 View Top 10 List", Data: cbBrowseTop}),
	}
}

func backRow() []Button {
	return row(Button{Label: "🔙 Back to Main Menu", Data: cbBackMain})
}
