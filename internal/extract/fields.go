package extract

import (
	"context"
	"fmt"

	"github.com/avashisht/veridoc/internal/llm"
	"github.com/avashisht/veridoc/internal/model"
)

const structureSystemPrompt = `You extract structured fields from certificate text. ` +
	`Respond with a single JSON object and nothing else.`

const structurePromptTemplate = `Below is the OCR text of a course or professional certificate.
Extract these fields into JSON:

{
  "candidate_name": "full name of the certificate recipient, or empty",
  "certificate_id": "the credential identifier exactly as printed, or empty",
  "issuer_name": "the issuing organization or platform, or empty",
  "issuer_url": "a verification URL if one is printed, or empty"
}

Use the empty string for anything not present. Do not invent values.

OCR text:
---
%s
---`

// rawFields mirrors the JSON shape the model is asked for.
type rawFields struct {
	CandidateName string `json:"candidate_name"`
	CertificateID string `json:"certificate_id"`
	IssuerName    string `json:"issuer_name"`
	IssuerURL     string `json:"issuer_url"`
}

// StructureFields asks the language model to turn raw OCR text into named
// fields. The response goes through the tolerant JSON decode; a response that
// survives no parse strategy comes back as a model.ParseError.
func StructureFields(ctx context.Context, provider llm.Provider, text string) (model.ExtractedFields, error) {
	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		System:      structureSystemPrompt,
		Prompt:      fmt.Sprintf(structurePromptTemplate, text),
		Temperature: 0.0,
	})
	if err != nil {
		return model.ExtractedFields{}, fmt.Errorf("structure fields: %w", err)
	}

	var raw rawFields
	if err := llm.DecodeJSON(resp.Text, &raw); err != nil {
		return model.ExtractedFields{}, err
	}
	return model.ExtractedFields{
		CandidateName: raw.CandidateName,
		CertificateID: raw.CertificateID,
		IssuerName:    raw.IssuerName,
		IssuerURL:     raw.IssuerURL,
	}, nil
}
