// Package heuristic provides the deterministic keyword-based intent
// classifier used as the default and terminal fallback when no ML backend is
// configured or an ML call fails.
//
// The classifier scans the transcript for scam-indicator phrases in two
// tiers. Strong phrases (credential, one-time-code, gift-card, wire-transfer
// and identity-verification wording, French and English) decide the verdict
// outright; medium phrases (urgency, prize and verification-request wording)
// only raise suspicion. Within a tier the canonical list order decides which
// phrase is reported when several match — not the order of appearance in the
// text. It never errors.
package heuristic

import (
	"context"
	"strings"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
)

// Tier confidences. A strong match is close to certain; a medium match is
// suspicious but not damning.
const (
	strongConfidence = 0.92
	mediumConfidence = 0.7

	// speechConfidence applies to non-empty speech with no keyword hit:
	// still mildly suspicious, since the heuristic only runs when no ML
	// model is available to clear it.
	speechConfidence = 0.6

	// fallbackConfidence is the terminal default.
	fallbackConfidence = 0.4
)

// strongPhrases decide the verdict outright, in canonical precedence order.
// All entries are lowercase; matching is case-insensitive substring search.
var strongPhrases = []string{
	// one-time codes
	"transférez le code",
	"code que je vous ai envoyé",
	"code de vérification",
	"verification code",
	"one-time password",
	"mot de passe à usage unique",
	"code pin",
	"pin code",
	// financial credentials
	"numéro de compte",
	"account number",
	"numéro de carte",
	"card number",
	"cryptogramme",
	"security code on the back",
	// transfers and gift cards
	"virement bancaire",
	"wire transfer",
	"transférer de l'argent",
	"transfer the money",
	"carte cadeau",
	"gift card",
	// identity verification phrasing
	"confirmez votre identité",
	"confirm your identity",
	"vérifier votre identité",
	"verify your identity",
}

// mediumPhrases raise suspicion without deciding the verdict, in canonical
// precedence order.
var mediumPhrases = []string{
	// urgency
	"urgent",
	"immédiatement",
	"immediately",
	"dernier rappel",
	"final notice",
	"act now",
	// prizes
	"vous avez gagné",
	"you have won",
	"prize",
	"felicitations",
	"félicitations",
	// verification requests
	"vérifier vos informations",
	"verify your information",
	"contrôle de sécurité",
	"security check",
	"service de sécurité",
	"security department",
	"impôts",
	"tax office",
}

// Compile-time assertion that Classifier implements intent.Provider.
var _ intent.Provider = (*Classifier)(nil)

// Classifier is the keyword heuristic. The zero value is ready to use and
// safe for concurrent use; the phrase lists are fixed at compile time.
type Classifier struct{}

// New returns a new heuristic Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify applies the tiered keyword match. It never returns an error and
// ignores ctx; there is nothing to cancel.
func (c *Classifier) Classify(_ context.Context, text string) (intent.Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return intent.Result{
			Label:      intent.LabelSafe,
			Confidence: 0.0,
			Rationale:  "no speech detected",
		}, nil
	}

	lower := strings.ToLower(trimmed)

	for _, phrase := range strongPhrases {
		if strings.Contains(lower, phrase) {
			return intent.Result{
				Label:      intent.LabelScam,
				Confidence: strongConfidence,
				Rationale:  "keyword match (strong): " + phrase,
			}, nil
		}
	}

	for _, phrase := range mediumPhrases {
		if strings.Contains(lower, phrase) {
			return intent.Result{
				Label:      intent.LabelSuspicious,
				Confidence: mediumConfidence,
				Rationale:  "keyword match (medium): " + phrase,
			}, nil
		}
	}

	if trimmed != "" {
		return intent.Result{
			Label:      intent.LabelSuspicious,
			Confidence: speechConfidence,
			Rationale:  "non-empty speech without explicit scam patterns",
		}, nil
	}

	return intent.Result{
		Label:      intent.LabelSafe,
		Confidence: fallbackConfidence,
		Rationale:  "fallback heuristic",
	}, nil
}
