// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// ErrorReasoningPrefix starts the reasoning of every failure placeholder.
const ErrorReasoningPrefix = "Error: "

// Classification is the judgement returned for one paper: two independent
// topical flags and a short rationale (in Chinese, as the prompt requests).
type Classification struct {
	// IsAI4Science marks AI/ML applied to scientific discovery.
	IsAI4Science bool `json:"is_ai4science"`

	// IsPerturbation marks perturbation-response prediction work.
	IsPerturbation bool `json:"is_perturbation"`

	// Reasoning is the one-sentence rationale.
	Reasoning string `json:"reasoning"`
}

// FailedClassification is the placeholder attached to a paper whose
// classification call or reply parsing failed.
func FailedClassification(err error) *Classification {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Classification{Reasoning: ErrorReasoningPrefix + msg}
}

// Failed reports whether c is a failure placeholder.
func (c *Classification) Failed() bool {
	return c != nil && !c.IsAI4Science && !c.IsPerturbation &&
		strings.HasPrefix(c.Reasoning, ErrorReasoningPrefix)
}

// Relevant reports whether either topical flag is set.
func (c *Classification) Relevant() bool {
	return c != nil && (c.IsAI4Science || c.IsPerturbation)
}
