package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesbot/internal/catalog"
	"salesbot/internal/history"
	"salesbot/internal/llm"
	"salesbot/internal/relevance"
)

func TestFormatCatalog(t *testing.T) {
	products := []catalog.Product{
		{Name: "Robe Élégante", Price: 250000, Stock: 5, Category: "Robes"},
		{Name: "Foulard", Price: 12500.5, Stock: 0, Category: "Accessoires"},
	}

	got := FormatCatalog(products, "GNF")
	assert.Equal(t,
		"Robe Élégante - 250000 GNF (Stock: 5) - Robes\n"+
			"Foulard - 12500.5 GNF (Stock: 0) - Accessoires",
		got)

	assert.Equal(t, EmptyCatalog, FormatCatalog(nil, "GNF"))
}

func TestHeading(t *testing.T) {
	assert.Equal(t, "PRODUITS ROBES DISPONIBLES:", Heading(relevance.Selection{Policy: relevance.PolicyCategory, Term: "robe"}))
	assert.Equal(t, "NOS RECOMMANDATIONS:", Heading(relevance.Selection{Policy: relevance.PolicyRecommend}))
	assert.Equal(t, "PRODUITS DISPONIBLES:", Heading(relevance.Selection{Policy: relevance.PolicyListing}))
}

func TestBuildRequestWithExcerpt(t *testing.T) {
	a := NewAssembler(Config{})
	sel := relevance.Selection{
		Policy:   relevance.PolicyCategory,
		Term:     "robe",
		Products: []catalog.Product{{Name: "Robe Élégante", Price: 250000, Stock: 5, Category: "Robes"}},
	}
	turns := []history.Turn{{Role: history.RoleUser, Content: "Avez-vous des robes ?", Timestamp: time.Now()}}

	req := a.BuildRequest(turns, a.Excerpt(sel))

	require.Len(t, req.Messages, 2)
	system := req.Messages[0]
	assert.Equal(t, llm.RoleSystem, system.Role)
	assert.True(t, strings.HasPrefix(system.Content, DefaultPersona))
	assert.Contains(t, system.Content, "PRODUITS ROBES DISPONIBLES:\nRobe Élégante - 250000 GNF")
	assert.Equal(t, llm.Message{Role: "user", Content: "Avez-vous des robes ?"}, req.Messages[1])
}

func TestBuildRequestWithoutExcerpt(t *testing.T) {
	a := NewAssembler(Config{Persona: "Tu es Mariama."})

	req := a.BuildRequest(nil, "")

	require.Len(t, req.Messages, 1)
	assert.Equal(t, "Tu es Mariama.\n\n"+NoCatalogContext, req.Messages[0].Content)
}

func TestBuildRequestKeepsLastKTurnsInOrder(t *testing.T) {
	a := NewAssembler(Config{HistoryTurns: 6})

	var turns []history.Turn
	for i := 0; i < 8; i++ {
		role := history.RoleUser
		if i%2 == 1 {
			role = history.RoleAssistant
		}
		turns = append(turns, history.Turn{Role: role, Content: fmt.Sprintf("t%d", i)})
	}

	req := a.BuildRequest(turns, "")

	require.Len(t, req.Messages, 7)
	for i, m := range req.Messages[1:] {
		assert.Equal(t, fmt.Sprintf("t%d", i+2), m.Content)
	}
	assert.Equal(t, "t7", req.Messages[6].Content, "current message appears once, last")
}

func TestBuildRequestCarriesParams(t *testing.T) {
	temp := float32(0.3)
	a := NewAssembler(Config{MaxTokens: 200, Temperature: &temp, TopP: 0.9})

	req := a.BuildRequest(nil, "")
	assert.Equal(t, 200, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, float32(0.3), *req.Temperature)
	assert.Equal(t, float32(0.9), req.TopP)
}
