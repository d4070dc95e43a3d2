package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/letsssgooo/chembot/internal/client"
)

const (
	recentResultsLimit = 10
	leaderboardLimit   = 10
)

// sendPersonalStats показывает пользователю его последние результаты
// и средний процент по ним.
func (b *Bot) sendPersonalStats(ctx context.Context, chatID, userID int64) error {
	results, err := b.storage.RecentResults(ctx, userID, recentResultsLimit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return b.sendPlainErr(chatID, msgNoStatsYet)
	}

	var sum float64
	var sb strings.Builder
	sb.WriteString("📊 إحصائياتك:\n")

	for _, result := range results {
		sum += result.ScorePercentage
		sb.WriteString(fmt.Sprintf("\n• %s — %d/%d (%.1f%%)",
			result.CompletedAt.Format("02.01"),
			result.CorrectCount, result.TotalQuestions, result.ScorePercentage))
	}

	sb.WriteString(fmt.Sprintf("\n\nالمتوسط لآخر %d اختبار: %.1f%%",
		len(results), sum/float64(len(results))))

	markup := &client.InlineKeyboardMarkup{InlineKeyboard: [][]client.InlineKeyboardButton{
		{{Text: "🏠 القائمة الرئيسية", CallbackData: "main_menu"}},
	}}

	_, err = b.client.SendMessage(chatID, sb.String(), &client.SendOptions{ReplyMarkup: markup})
	return err
}

// sendLeaderboard показывает топ пользователей по среднему проценту.
func (b *Bot) sendLeaderboard(ctx context.Context, chatID int64) error {
	entries, err := b.storage.Leaderboard(ctx, leaderboardLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return b.sendPlainErr(chatID, msgNoStatsYet)
	}

	medals := []string{"🥇", "🥈", "🥉"}

	var sb strings.Builder
	sb.WriteString("🏆 المتصدرون:\n")

	for i, entry := range entries {
		mark := fmt.Sprintf("%d.", entry.Rank)
		if i < len(medals) {
			mark = medals[i]
		}
		sb.WriteString(fmt.Sprintf("\n%s %s — %.1f%% (%d اختبار)",
			mark, entry.FullName, entry.AveragePercent, entry.QuizCount))
	}

	markup := &client.InlineKeyboardMarkup{InlineKeyboard: [][]client.InlineKeyboardButton{
		{{Text: "🏠 القائمة الرئيسية", CallbackData: "main_menu"}},
	}}

	_, err = b.client.SendMessage(chatID, sb.String(), &client.SendOptions{ReplyMarkup: markup})
	return err
}
