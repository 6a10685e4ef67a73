package conversation

import "math/rand"

// Mode names.
const (
	ModeDefault           = "default"
	ModeScheduledGreeting = "scheduled-greeting"
	ModeTopicRoulette     = "topic-roulette"
)

const defaultSystemPrompt = "あなたは音声対話アプリの会話AIです。" +
	"話し方：親しみやすく、1〜2文、質問は必ず1つまで。共感→質問の順番で話す。" +
	"禁止：長文、複数質問、押し付け助言、高リスク助言。"

const rouletteSystemPrompt = "あなたは音声対話アプリの会話AIです。\n" +
	"目的：ユーザーの「今日の出来事」と「その時の感情」を短いやり取りで引き出す。\n" +
	"話し方：親しみやすく、1〜2文、質問は必ず1つ。共感→質問の順番で話す。\n" +
	"禁止：長文、複数質問、押し付け助言、高リスク助言。\n" +
	"ルール：各Stepで与えられる指示に厳密に従い、指定形式のみで返答する。"

const greetingSystemPrompt = "あなたは朝の声かけを担当する会話AIです。\n" +
	"目的：今日やることを短いやり取りで確認し、気持ちよく一日を始めさせる。\n" +
	"話し方：親しみやすく、1〜2文、質問は必ず1つまで。\n" +
	"ルール：各Stepで与えられる指示に厳密に従うこと。"

// DefaultCatalog returns the built-in mode catalog. Callers may replace the
// transition table or the topic list without touching the engine.
func DefaultCatalog() Catalog {
	return Catalog{
		Default: ModeDefault,
		Modes: map[string]ModeSpec{
			ModeDefault: {
				SystemPrompt: defaultSystemPrompt,
				AIInitiated:  true,
				Steps: []Step{
					{Name: "INTRO", Prompt: "【Step=INTRO】1〜2文で軽い挨拶をする。まだ質問はしない。"},
					{Name: "CHAT", Prompt: "【Step=CHAT】1〜2文で受け止め、必要なら質問を1つだけする。"},
				},
			},
			ModeTopicRoulette: {
				SystemPrompt: rouletteSystemPrompt,
				AIInitiated:  true,
				PickTopic:    true,
				Steps: []Step{
					{Name: "INTRO", Prompt: "【Step=INTRO】1〜2文で軽い導入を行う。まだ質問はしない。質問・要約・助言は禁止。"},
					{Name: "TOPIC", Prompt: "【Step=TOPIC】1〜2文でユーザーの話を受け止めつつ、「一番の出来事を1つだけ挙げると？」と単一の質問で尋ねる。"},
					{Name: "EMOTION", Prompt: "【Step=EMOTION】1〜2文で共感を示したあと、「それ、どんな気持ち？」と質問する。"},
					{Name: "PROBE", Prompt: "【Step=PROBE】1〜2文で反応し、事実か感情のどちらか一方を深掘りする質問を1つだけ投げる。"},
					{Name: "SUMMARY", Prompt: "【Step=SUMMARY】1文で出来事と感情をまとめたうえで、「他にもはなしたいことある？」と質問する。"},
					{Name: "END", Prompt: "【Step=END】1文で今日の会話を短く要約し、短いフックで締める。質問はしない。"},
				},
			},
			ModeScheduledGreeting: {
				SystemPrompt: greetingSystemPrompt,
				AIInitiated:  true,
				Steps: []Step{
					{Name: "INTRO", Prompt: "【Step=INTRO】1〜2文で朝の挨拶をする。まだ質問はしない。"},
					{Name: "REMAINING", Prompt: "【Step=REMAINING】昨日からの持ち越しがないか1〜2文で軽く触れる。"},
					{Name: "ASK", Prompt: "【Step=ASK】「今日やることを教えて」と1つだけ質問する。"},
					{Name: "CONFIRM", Prompt: "【Step=CONFIRM】聞いた予定を1文で復唱し、合っているか確認する。"},
					{Name: "END", Prompt: "【Step=END】短い励ましで締める。質問はしない。"},
				},
			},
		},
		Transitions: []Transition{
			// Scripted modes hand back to free chat once their flow ends.
			{From: ModeTopicRoulette, AtUserTurns: 6, To: ModeDefault},
			{From: ModeScheduledGreeting, AtUserTurns: 5, To: ModeDefault},
		},
		Topics: []string{
			"今日の一番の出来事",
			"最近うれしかったこと",
			"ちょっと困っていること",
			"今ハマっていること",
			"週末にやりたいこと",
		},
	}
}

// TopicPicker draws an opening topic for modes with PickTopic set. The
// randomness lives behind this interface so tests can pin it.
type TopicPicker interface {
	Pick(topics []string) string
}

// RandomTopicPicker draws uniformly from the topic list.
type RandomTopicPicker struct {
	Rand *rand.Rand
}

func (p RandomTopicPicker) Pick(topics []string) string {
	if len(topics) == 0 {
		return ""
	}
	if p.Rand != nil {
		return topics[p.Rand.Intn(len(topics))]
	}
	return topics[rand.Intn(len(topics))]
}

// FixedTopicPicker always returns the same topic. Used in tests.
type FixedTopicPicker struct {
	Topic string
}

func (p FixedTopicPicker) Pick([]string) string {
	return p.Topic
}
