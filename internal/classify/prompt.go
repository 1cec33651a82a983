// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"text/template"
)

// systemPrompt is sent as the system message of every chat request.
const systemPrompt = "You are a helpful assistant that classifies scientific papers."

// classifyPromptTmpl is the user message for one paper. Title and abstract
// are embedded verbatim.
var classifyPromptTmpl = template.Must(template.New("classify").Parse(`Evaluate the relevance of the following arXiv paper.

1. is_ai4science: does it apply AI or machine learning to scientific discovery, simulation, or data analysis (biology, chemistry, physics, materials, climate, medicine)?
2. is_perturbation: does it address perturbation prediction, i.e. predicting cellular, genetic, or chemical responses to perturbations such as drug treatments or gene knockouts?

The two judgements are independent.

Title: {{.Title}}
Abstract: {{.Abstract}}

Respond with a single JSON object and nothing else:
{"is_ai4science": true or false, "is_perturbation": true or false, "reasoning": "one short sentence in Chinese explaining the judgement"}
`))

// renderPrompt executes the classification template for one paper.
func renderPrompt(title, abstract string) (string, error) {
	var buf bytes.Buffer
	data := struct{ Title, Abstract string }{Title: title, Abstract: abstract}
	if err := classifyPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
