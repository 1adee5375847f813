package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_Search(t *testing.T) {
	prompt, tools, err := buildPrompt(Params{Mode: ModeSearch, Query: "bitcoin"})
	require.NoError(t, err)
	assert.Contains(t, prompt, `"bitcoin"`)
	assert.Contains(t, prompt, "https://x.com/username/status/ID")
	require.Len(t, tools, 2)
	assert.Equal(t, "x_search", tools[0]["type"])
	assert.Equal(t, "web_search", tools[1]["type"])
}

func TestBuildPrompt_Topic(t *testing.T) {
	prompt, _, err := buildPrompt(Params{
		Mode:  ModeTopic,
		Query: "remote work",
		Side1: "for",
		Side2: "against",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, `Side A: "for"`)
	assert.Contains(t, prompt, `Side B: "against"`)
	assert.Contains(t, prompt, "scoreboard")
}

func TestBuildPrompt_Account(t *testing.T) {
	prompt, _, err := buildPrompt(Params{
		Mode:   ModeAccount,
		Handle: "jack",
		Topics: "bitcoin, ai , , privacy",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "@jack")
	assert.Contains(t, prompt, "- bitcoin\n- ai\n- privacy")
}

func TestBuildPrompt_Ask(t *testing.T) {
	prompt, _, err := buildPrompt(Params{
		Mode:     ModeAsk,
		Handle:   "jack",
		Question: "what do they think of lightning?",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "@jack")
	assert.Contains(t, prompt, "what do they think of lightning?")
}

func TestBuildPrompt_InvalidMode(t *testing.T) {
	_, _, err := buildPrompt(Params{Mode: "dance"})
	assert.Error(t, err)
}
