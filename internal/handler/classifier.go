package handler

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rsvp-bot/internal/models"
)

// IntentKind is what a guest meant by a reply.
type IntentKind int

const (
	IntentIgnore IntentKind = iota
	IntentYes
	IntentNo
	IntentMaybe
	IntentCount
	IntentCountMore
	IntentClarify
)

func (k IntentKind) String() string {
	switch k {
	case IntentYes:
		return "yes"
	case IntentNo:
		return "no"
	case IntentMaybe:
		return "maybe"
	case IntentCount:
		return "count"
	case IntentCountMore:
		return "count_more"
	case IntentClarify:
		return "clarify"
	default:
		return "ignore"
	}
}

// Intent is the classification of one inbound message. Count is set only
// for IntentCount.
type Intent struct {
	Kind  IntentKind
	Count int
}

// Quick-reply button ids sent by the bot.
const (
	ButtonYes       = "yes"
	ButtonNo        = "no"
	ButtonMaybe     = "maybe"
	ButtonGuest1    = "guest_1"
	ButtonGuest2    = "guest_2"
	ButtonGuestMore = "guest_more"

	testButtonPrefix = "test_"
)

// maxPartySize bounds a plausible party. Larger numbers are usually a phone
// number or a date typed into the chat.
const maxPartySize = 50

var standaloneNumber = regexp.MustCompile(`\b[0-9]+\b`)

// Keyword sets, checked against lower-cased text. Exact words must be the
// whole reply; phrases may appear anywhere in it.
var (
	yesWords   = []string{"yes", "y", "yep", "yeah", "sure", "ok", "כן", "בטח", "בטח שכן"}
	noWords    = []string{"no", "nope", "לא"}
	maybeWords = []string{"maybe", "not sure", "אולי", "לא בטוח", "לא בטוחה"}

	yesPhrases   = []string{"yes i", "i will", "i am coming", "i'll attend", "will attend", "will come", "we'll be there", "אגיע", "נגיע", "מגיעים", "מגיע", "מגיעה", "נשמח להגיע"}
	noPhrases    = []string{"cannot", "can't", "not attend", "won't be", "not coming", "לא אגיע", "לא נגיע", "לא נוכל", "לא אוכל", "לא יכול", "לא מגיע", "לא מגיעים"}
	maybePhrases = []string{"maybe", "not sure", "might come", "אולי", "לא בטוח", "עוד לא יודע", "עוד לא יודעים"}

	moreLabels = []string{"or more", "more", "ומעלה", "יותר"}

	rsvpKeywords = []string{"rsvp", "attend", "coming", "הגעה", "להגיע", "אישור"}
)

// Classify turns an inbound message into an Intent. Messages are classified
// independently: a bare number or a count button is a party size no matter
// what was asked before.
func Classify(msg models.InboundMessage) Intent {
	if msg.ButtonID != "" {
		if intent, ok := classifyButton(msg.ButtonID); ok {
			return intent
		}
	}
	if msg.ButtonDisplayText != "" {
		if intent := classifyLabel(msg.ButtonDisplayText); intent.Kind != IntentIgnore {
			return intent
		}
	}
	return classifyText(msg.Text)
}

func classifyButton(id string) (Intent, bool) {
	id = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(id)), testButtonPrefix)
	switch id {
	case ButtonYes:
		return Intent{Kind: IntentYes}, true
	case ButtonNo:
		return Intent{Kind: IntentNo}, true
	case ButtonMaybe:
		return Intent{Kind: IntentMaybe}, true
	case ButtonGuestMore:
		return Intent{Kind: IntentCountMore}, true
	}
	if rest, ok := strings.CutPrefix(id, "guest_"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n > 0 && n <= maxPartySize {
			return Intent{Kind: IntentCount, Count: n}, true
		}
	}
	return Intent{}, false
}

// classifyLabel infers a button id from its display text, for clients that
// drop the id from the selection. Bilingual labels ("אולי / Maybe") are
// also tried one half at a time.
func classifyLabel(label string) Intent {
	text := normalizeText(label)
	if n, ok := firstNumber(text); ok {
		if containsAny(text, moreLabels...) {
			return Intent{Kind: IntentCountMore}
		}
		if n > maxPartySize {
			return Intent{Kind: IntentClarify}
		}
		return Intent{Kind: IntentCount, Count: n}
	}
	if intent := classifyKeywords(text); intent.Kind != IntentIgnore {
		return intent
	}
	for _, part := range strings.Split(text, "/") {
		if intent := classifyKeywords(strings.TrimSpace(part)); intent.Kind != IntentIgnore {
			return intent
		}
	}
	if containsAny(text, "just me", "רק אני") {
		return Intent{Kind: IntentCount, Count: 1}
	}
	return Intent{}
}

func classifyText(raw string) Intent {
	text := normalizeText(raw)
	if text == "" {
		return Intent{}
	}
	if intent := classifyKeywords(text); intent.Kind != IntentIgnore {
		return intent
	}
	if n, ok := firstNumber(text); ok {
		switch {
		case n == 0:
			return Intent{Kind: IntentNo}
		case n > maxPartySize:
			return Intent{Kind: IntentClarify}
		}
		return Intent{Kind: IntentCount, Count: n}
	}
	if containsAny(text, rsvpKeywords...) {
		return Intent{Kind: IntentClarify}
	}
	return Intent{}
}

// classifyKeywords checks maybe before no before yes, since Hebrew negations
// contain the affirmative verb ("לא אגיע" contains "אגיע").
func classifyKeywords(text string) Intent {
	word := strings.TrimRight(text, "!.?, ")
	switch {
	case equalsAny(word, maybeWords...) || containsAny(text, maybePhrases...):
		return Intent{Kind: IntentMaybe}
	case equalsAny(word, noWords...) || containsAny(text, noPhrases...):
		return Intent{Kind: IntentNo}
	case equalsAny(word, yesWords...) || containsAny(text, yesPhrases...):
		return Intent{Kind: IntentYes}
	}
	return Intent{}
}

func normalizeText(s string) string {
	return strings.TrimSpace(cases.Lower(language.Und).String(s))
}

func firstNumber(text string) (int, bool) {
	match := standaloneNumber.FindString(text)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

// containsAny checks if the text contains any of the given keywords
func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func equalsAny(text string, words ...string) bool {
	for _, word := range words {
		if text == word {
			return true
		}
	}
	return false
}
