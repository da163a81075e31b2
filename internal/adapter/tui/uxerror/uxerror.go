// Package uxerror translates raw errors into short user-facing messages with
// recovery hints. The raw error text is kept for logs only and is never shown.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"folio/internal/adapter/tui/theme"
	"folio/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Clé API manquante"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text (for debug logs)
}

// Render formats the FriendlyError for display in the TUI.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions :")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Domain sentinels first so errors.Is works through wrapping.
	{
		match: is(domain.ErrMissingCredential),
		produce: constantError("Clé API manquante",
			"Aucune clé Gemini n'est configurée.",
			[]string{"Définissez GEMINI_API_KEY ou FOLIO_ASSISTANT_API_KEY", "Ou renseignez assistant.api_key dans le fichier de configuration"}),
	},
	{
		match: is(domain.ErrAuthInvalid),
		produce: constantError("Clé API refusée",
			"Le fournisseur a rejeté la clé API.",
			[]string{"Vérifiez que la clé n'a pas expiré", "Vérifiez que l'API Gemini est activée pour ce projet"}),
	},
	{
		match: is(domain.ErrRateLimit),
		produce: constantError("Limite de requêtes atteinte",
			"Trop de requêtes ont été envoyées au fournisseur.",
			[]string{"Patientez un instant avant de réessayer", "Configurez assistant.fallback_models"}),
	},
	{
		match: is(domain.ErrCircuitOpen),
		produce: constantError("Service temporairement indisponible",
			"Plusieurs échecs consécutifs ont suspendu les appels.",
			[]string{"Réessayez dans quelques secondes"}),
	},
	{
		match: is(domain.ErrConfigLoad),
		produce: constantError("Configuration invalide",
			"Le fichier de configuration n'a pas pu être chargé.",
			[]string{"Vérifiez la syntaxe YAML et les permissions du fichier"}),
	},
	{
		match: is(domain.ErrInvalidInput),
		produce: constantError("Paramètres invalides",
			"La session n'a pas pu être créée avec cette configuration.",
			[]string{"Vérifiez assistant.model"}),
	},
	{
		match: is(domain.ErrSessionUnavailable),
		produce: constantError("Assistant indisponible",
			"Aucune session n'a pu être ouverte.",
			[]string{"Relancez l'application"}),
	},

	// Network patterns (string matching for errors from the transport).
	{
		match: containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Connexion impossible",
			"Le service distant est injoignable.",
			[]string{"Vérifiez votre connexion internet", "Vérifiez assistant.base_url"}),
	},
	{
		match: containsAny("deadline exceeded", "timeout", "context deadline"),
		produce: constantError("Délai dépassé",
			"La requête a pris trop de temps.",
			[]string{"Vérifiez votre connexion", "Augmentez assistant.resp_timeout"}),
	},
	{
		match: containsAny("402", "quota", "billing"),
		produce: constantError("Quota épuisé",
			"Le quota ou la facturation du fournisseur a été atteint.",
			[]string{"Consultez la console de facturation du fournisseur"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Erreur inconnue", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}

	return FriendlyError{
		Title:   "Erreur inattendue",
		Message: "L'assistant n'a pas pu démarrer.",
		Hints:   []string{"Réessayez", "Relancez avec FOLIO_LOGGER_LEVEL=debug et consultez le journal"},
		Raw:     err.Error(),
	}
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
