package reasoner

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/hupe1980/taskmesh/core"
)

// finishTool is hidden from thinking output.
const finishTool = "finish"

// formatThought renders the reasoning text and the chosen tool call as
// "Thought:", "Tool:" and "Args:" sections separated by blank lines. Empty
// sections are left out.
func formatThought(text string, call *core.FunctionCall) string {
	var sections []string

	if t := strings.TrimSpace(text); t != "" {
		sections = append(sections, "Thought: "+t)
	}

	if call != nil && call.Name != "" && call.Name != finishTool {
		sections = append(sections, "Tool: "+call.Name)

		if args := strings.TrimSpace(call.Arguments); args != "" && args != "{}" {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, []byte(args), "", "  "); err == nil {
				args = pretty.String()
			}
			sections = append(sections, "Args: "+args)
		}
	}

	return strings.Join(sections, "\n\n")
}
