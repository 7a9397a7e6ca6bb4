// Package annotate turns a control identifier into a plain-language
// explanation using an external text-generation service.
package annotate

import (
	"fmt"
	"strings"
)

// Prompt templates.
const (
	basePrompt        = "Explain this FedRAMP control %s in a short and simple way for a non-technical user."
	remediationPrompt = " In a separate paragraph, also list possible remediation steps for this control."
)

// BuildPrompt builds the prompt for a control. The remediation variant is the
// base prompt followed by the remediation instruction.
func BuildPrompt(controlID string, includeRemediation bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(basePrompt, controlID))
	if includeRemediation {
		sb.WriteString(remediationPrompt)
	}
	return sb.String()
}
