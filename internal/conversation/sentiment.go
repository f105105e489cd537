package conversation

import "strings"

// SentimentReading summarizes caller mood so the model can adjust tone.
type SentimentReading struct {
	Sentiment      string  `json:"sentiment"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
	SpeechClarity  struct {
		WordCount  int    `json:"word_count"`
		IsComplete bool   `json:"is_complete"`
		Clarity    string `json:"clarity"`
	} `json:"speech_clarity"`
}

var (
	positiveWords = []string{"thank", "great", "perfect", "wonderful", "excellent", "good", "happy", "pleased", "appreciate"}
	negativeWords = []string{"frustrated", "angry", "upset", "terrible", "horrible", "awful", "bad", "hate", "annoyed", "disappointed"}
	anxiousWords  = []string{"nervous", "scared", "worried", "anxious", "afraid", "fear", "pain", "hurt"}
	urgentWords   = []string{"emergency", "urgent", "asap", "immediately", "severe", "bleeding", "swollen", "unbearable"}
	confusedWords = []string{"confused", "don't understand", "what do you mean", "sorry", "pardon", "repeat"}
)

func countMatches(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// AnalyzeSentiment applies the keyword heuristics the agent uses to steer
// its tone between turns.
func AnalyzeSentiment(text string) SentimentReading {
	lower := strings.ToLower(text)

	positive := countMatches(lower, positiveWords)
	negative := countMatches(lower, negativeWords)
	anxious := countMatches(lower, anxiousWords)
	urgent := countMatches(lower, urgentWords)
	confused := countMatches(lower, confusedWords)

	reading := SentimentReading{
		Sentiment:      "neutral",
		Confidence:     0.5,
		Recommendation: "Continue with normal conversational tone.",
	}

	switch {
	case urgent > 0:
		reading.Sentiment = "urgent"
		reading.Confidence = 0.9
		reading.Recommendation = "Show empathy and prioritize getting them help quickly. Use calming, reassuring language."
	case anxious > 0:
		reading.Sentiment = "anxious"
		reading.Confidence = 0.8
		reading.Recommendation = `Be extra reassuring and gentle. Say things like "You're in great hands" and "We'll take excellent care of you."`
	case negative > positive:
		reading.Sentiment = "negative"
		reading.Confidence = 0.7
		reading.Recommendation = "Acknowledge their frustration. Consider offering to transfer to staff if they seem very upset."
	case positive > negative:
		reading.Sentiment = "positive"
		reading.Confidence = 0.7
		reading.Recommendation = "Match their positive energy! Be upbeat and enthusiastic."
	case confused > 0:
		reading.Sentiment = "confused"
		reading.Confidence = 0.7
		reading.Recommendation = "Slow down, speak clearly, and offer to repeat or clarify. Ask simpler questions."
	}

	words := strings.Fields(text)
	complete := len(text) > 10 && (strings.Contains(text, " ") || strings.Contains(text, ","))
	reading.SpeechClarity.WordCount = len(words)
	reading.SpeechClarity.IsComplete = complete
	if complete {
		reading.SpeechClarity.Clarity = "clear"
	} else {
		reading.SpeechClarity.Clarity = "unclear"
	}
	return reading
}
