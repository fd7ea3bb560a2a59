package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simufolio/internal/services/conversation"
)

func TestInlineKeyboard_Conversion(t *testing.T) {
	rows := [][]conversation.Button{
		{
			{Label: "Hourly", Data: "sub:bitcoin:50:hourly"},
			{Label: "Daily", Data: "sub:bitcoin:50:daily"},
		},
		{
			{Label: "🔙 Back", Data: "back_main"},
		},
	}

	markup := inlineKeyboard(rows)
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)

	btn := markup.InlineKeyboard[0][1]
	assert.Equal(t, "Daily", btn.Text)
	require.NotNil(t, btn.CallbackData)
	assert.Equal(t, "sub:bitcoin:50:daily", *btn.CallbackData)
}

func TestInlineKeyboard_EmptyIsNil(t *testing.T) {
	assert.Nil(t, inlineKeyboard(nil))
	assert.Nil(t, inlineKeyboard([][]conversation.Button{}))
}
