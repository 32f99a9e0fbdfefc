package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tch-helper-go/internal/models"
)

const (
	compactMaxLines = 15
	compactMaxRunes = 60
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// compactChatLogs keeps the newest lines, collapses whitespace, truncates
// each line and quotes it with "> ".
func compactChatLogs(lines []string) string {
	if len(lines) > compactMaxLines {
		lines = lines[len(lines)-compactMaxLines:]
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = whitespaceRun.ReplaceAllString(line, " ")
		if runes := []rune(line); len(runes) > compactMaxRunes {
			line = string(runes[:compactMaxRunes])
		}
		out = append(out, "> "+line)
	}
	return strings.Join(out, "\n")
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "不明"
	}
	return v
}

func systemPrompt(cc models.ChatContext) string {
	game := ""
	if cc.Game != "" {
		game = fmt.Sprintf("「%s」の", cc.Game)
	}

	return fmt.Sprintf(`あなたはTwitchで%s配信を見ているリスナーです。
配信チャットにそのまま打てる短いリアクション案を出してください。

ルール:
- 丁寧語、説明、要約、AIとしての発言は禁止
- 語尾は「w」「じゃん」「かも」「！」「？？」などくだけた形
- 1件15〜25文字
- ログの文を8文字以上そのまま使わない
- 誹謗中傷、差別、性的な話題、個人情報、配信者への指示は禁止
- 出力はJSONのみ: {"suggestions":[...]}`, game)
}

func userPrompt(cc models.ChatContext) string {
	firstTime := "いいえ"
	if cc.IsFirstTime {
		firstTime = "はい"
	}

	mood := "なし"
	if cc.ChatSignals != nil && len(cc.ChatSignals.MoodTags) > 0 {
		mood = strings.Join(cc.ChatSignals.MoodTags, "、")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "配信タイトル: %s\n", orUnknown(cc.Title))
	fmt.Fprintf(&b, "ゲーム: %s\n", orUnknown(cc.Game))
	fmt.Fprintf(&b, "初見: %s\n", firstTime)
	fmt.Fprintf(&b, "チャットの空気: %s\n\n", mood)
	b.WriteString("直近ログ:\n")
	b.WriteString(compactChatLogs(cc.ChatLogs))
	b.WriteString(`

次の順で5件:
1. ツッコミ
2. 共感
3. 驚き・歓声
4. 答えやすい質問
5. 応援・称賛

話題が読めないときは汎用の盛り上げや質問にする。
固有名詞や数字は全体で1件まで。
初見が「はい」なら1件を自然な挨拶にする。

{"suggestions": ["...","...","...","...","..."]} の形だけを返す。`)
	return b.String()
}

// BuildMessages returns the chat messages for one suggestion request
func BuildMessages(cc models.ChatContext) []models.Message {
	return []models.Message{
		{Role: "system", Content: systemPrompt(cc)},
		{Role: "user", Content: userPrompt(cc)},
	}
}
