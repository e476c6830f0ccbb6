// Package prompt renders what the tutor model sees: the fixed persona instruction
// and the per-question context prompt.
package prompt

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/turns"
	"github.com/pkg/errors"
)

const DefaultSystemInstruction = `Tu es "L'Appui Pédagogique", un assistant IA expert pour le système scolaire français (Collège et Lycée).
Ton objectif n'est JAMAIS de donner la réponse directement, mais d'utiliser la méthode socratique.
Guide l'élève par des questions, des indices et des reformulations pour qu'il comprenne par lui-même.

Règles strictes :
1. Adopte un ton encourageant, patient et adapté au niveau scolaire de l'élève.
2. Si l'élève envoie une image (document, carte, texte), analyse-la en détail et aide-le à en extraire les informations clés.
3. Reste strictement dans le cadre des programmes officiels de l'Éducation Nationale (Histoire, Géo, EMC).
4. Refuse poliment de traiter des sujets hors programme ou inappropriés.
5. Sois concis.
`

const (
	StudentLabel = "Élève"
	TutorLabel   = "Tuteur"
)

const contextTemplate = `Niveau scolaire : {{ .Level }}
Matière : {{ .Subject }}

Historique de la conversation :
{{ range .History -}}
{{ speaker .Speaker }}: {{ .Text | trim }}
{{ end }}
Nouvelle question de l'élève : {{ .Question }}
`

var tmpl = template.Must(
	template.New("context").
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{"speaker": Label}).
		Parse(contextTemplate),
)

type contextData struct {
	Level    string
	Subject  string
	History  []turns.Exchange
	Question string
}

// Label returns the French prefix used for a speaker in the context prompt.
func Label(s turns.Speaker) string {
	if s == turns.SpeakerStudent {
		return StudentLabel
	}
	return TutorLabel
}

// RenderContextPrompt renders the user part of a request. When the request sets
// MaxContextTokens, the oldest exchanges are dropped first.
func RenderContextPrompt(req *provider.Request) (string, error) {
	if req == nil {
		return "", errors.New("nil request")
	}
	history := req.History
	if req.MaxContextTokens > 0 {
		var err error
		history, err = TrimHistory(history, req.MaxContextTokens)
		if err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, contextData{
		Level:    req.Level,
		Subject:  req.Subject,
		History:  history,
		Question: req.Text,
	})
	if err != nil {
		return "", errors.Wrap(err, "could not render context prompt")
	}
	return buf.String(), nil
}

// SystemInstruction returns the request's instruction or the default persona.
func SystemInstruction(req *provider.Request) string {
	if req != nil && strings.TrimSpace(req.SystemInstruction) != "" {
		return req.SystemInstruction
	}
	return DefaultSystemInstruction
}
