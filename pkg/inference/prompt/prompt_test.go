package prompt

import (
	"strings"
	"testing"

	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/turns"
	"github.com/stretchr/testify/require"
)

func TestRenderContextPrompt(t *testing.T) {
	out, err := RenderContextPrompt(&provider.Request{
		Level:   "6ème",
		Subject: "Histoire",
		History: []turns.Exchange{
			{Speaker: turns.SpeakerTutor, Text: "Bonjour !"},
			{Speaker: turns.SpeakerStudent, Text: "Salut "},
		},
		Text: "Qu'est-ce que le Néolithique ?",
	})
	require.NoError(t, err)
	require.Equal(t, `Niveau scolaire : 6ème
Matière : Histoire

Historique de la conversation :
Tuteur: Bonjour !
Élève: Salut

Nouvelle question de l'élève : Qu'est-ce que le Néolithique ?
`, out)
}

func TestRenderContextPrompt_EmptyHistory(t *testing.T) {
	out, err := RenderContextPrompt(&provider.Request{Level: "2nde", Subject: "EMC", Text: "Laïcité ?"})
	require.NoError(t, err)
	require.Contains(t, out, "Historique de la conversation :\n\nNouvelle question de l'élève : Laïcité ?")

	_, err = RenderContextPrompt(nil)
	require.Error(t, err)
}

func TestSystemInstruction(t *testing.T) {
	require.Equal(t, DefaultSystemInstruction, SystemInstruction(nil))
	require.Equal(t, DefaultSystemInstruction, SystemInstruction(&provider.Request{SystemInstruction: "  "}))
	require.Equal(t, "custom", SystemInstruction(&provider.Request{SystemInstruction: "custom"}))
	require.True(t, strings.Contains(DefaultSystemInstruction, "méthode socratique"))
}

func TestTrimHistory(t *testing.T) {
	history := []turns.Exchange{
		{Speaker: turns.SpeakerTutor, Text: strings.Repeat("ancien message ", 50)},
		{Speaker: turns.SpeakerStudent, Text: "question courte"},
		{Speaker: turns.SpeakerTutor, Text: "réponse courte"},
	}

	all, err := TrimHistory(history, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	trimmed, err := TrimHistory(history, 30)
	require.NoError(t, err)
	require.Equal(t, history[1:], trimmed)

	none, err := TrimHistory(history, 1)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRenderContextPrompt_AppliesBudget(t *testing.T) {
	out, err := RenderContextPrompt(&provider.Request{
		History: []turns.Exchange{
			{Speaker: turns.SpeakerTutor, Text: strings.Repeat("très long ", 100)},
			{Speaker: turns.SpeakerStudent, Text: "dernier"},
		},
		Text:             "q",
		MaxContextTokens: 20,
	})
	require.NoError(t, err)
	require.NotContains(t, out, "très long")
	require.Contains(t, out, "Élève: dernier")
}

func TestCountTokens(t *testing.T) {
	n, err := CountTokens("hello world")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
