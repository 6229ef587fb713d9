package chat

import "strings"

// Language selects the built-in UI strings.
type Language string

const (
	LanguageFR Language = "FR"
	LanguageEN Language = "EN"
)

// ParseLanguage falls back to French, the original form language.
func ParseLanguage(raw string) Language {
	switch Language(strings.ToUpper(strings.TrimSpace(raw))) {
	case LanguageEN:
		return LanguageEN
	default:
		return LanguageFR
	}
}

type catalog struct {
	emptyTitle  string
	emptyHint   string
	sent        string
	sendFailed  string
	emptyInput  string
	noReport    string
	unknownRepo string
}

var catalogs = map[Language]catalog{
	LanguageFR: {
		emptyTitle:  "Aucun message pour le moment",
		emptyHint:   "Les messages avec la production apparaîtront ici",
		sent:        "Message envoyé",
		sendFailed:  "Erreur lors de l'envoi du message",
		emptyInput:  "Le message est vide",
		noReport:    "Aucun repérage sélectionné",
		unknownRepo: "Repérage introuvable",
	},
	LanguageEN: {
		emptyTitle:  "No messages yet",
		emptyHint:   "Messages with production will appear here",
		sent:        "Message sent",
		sendFailed:  "Failed to send the message",
		emptyInput:  "The message is empty",
		noReport:    "No report selected",
		unknownRepo: "Report not found",
	},
}

func (l Language) strings() catalog {
	if c, ok := catalogs[l]; ok {
		return c
	}
	return catalogs[LanguageFR]
}
