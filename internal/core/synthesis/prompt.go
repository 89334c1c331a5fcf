package synthesis

import (
	"fmt"
	"strings"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
)

const (
	noDocumentsMessage = `## NO RELEVANT DOCUMENTS FOUND

No documents in the knowledge base matched this query. You must tell the user
that you could not find information about their question in the knowledge base.
Do not answer from any other source.`

	criticalReminder = `CRITICAL REMINDER: Answer EXCLUSIVELY from the retrieved documents above.
Never use prior knowledge, never speculate, never invent sources. If the
documents are insufficient, say so directly.`
)

// buildMessages assembles the grounding conversation: the agent's role prompt,
// a grounding block enumerating every retrieved fragment (or the fixed
// no-documents block, so the model never free-associates), a final reminder,
// then the user query.
func buildMessages(agent domain.Agent, query string, fragments []domain.RetrievedFragment) []ports.ChatMessage {
	messages := []ports.ChatMessage{
		{Role: "system", Content: agent.RoleSystemPrompt},
	}

	if len(fragments) == 0 {
		messages = append(messages, ports.ChatMessage{Role: "system", Content: noDocumentsMessage})
	} else {
		var grounding strings.Builder
		grounding.WriteString("## RETRIEVED DOCUMENTS (ONLY USE INFORMATION FROM THESE DOCUMENTS)\n\n")
		for i, fragment := range fragments {
			grounding.WriteString(fmt.Sprintf("Document %d [ID: %s]\n", i+1, fragment.VectorID))
			if fragment.SourceFilename != "" {
				grounding.WriteString("Source filename: " + fragment.SourceFilename + "\n")
			}
			if fragment.DocType != "" {
				grounding.WriteString("Document Type: " + fragment.DocType + "\n")
			}
			grounding.WriteString("Content:\n" + fragment.Text + "\n\n")
		}
		messages = append(messages, ports.ChatMessage{Role: "system", Content: grounding.String()})
	}

	messages = append(messages,
		ports.ChatMessage{Role: "system", Content: criticalReminder},
		ports.ChatMessage{Role: "user", Content: query},
	)
	return messages
}
