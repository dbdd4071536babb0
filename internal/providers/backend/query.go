package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"voxquery/internal/domain"
)

type convertRequest struct {
	Text string `json:"text"`
}

type convertResponse struct {
	SQL *string `json:"sql"`
}

type executeRequest struct {
	Query string `json:"query"`
}

type executeResponse struct {
	ResultsInCSV *string `json:"resultsInCsv"`
}

// Convert asks the backend to translate natural language into a formal query.
func (c *Client) Convert(ctx context.Context, text string) (string, error) {
	var out convertResponse
	if err := c.postJSON(ctx, "convert", c.cfg.ConvertPath, convertRequest{Text: text}, &out); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrConversionFailed, err)
	}
	if out.SQL == nil {
		return "", fmt.Errorf("%w: response has no sql field", domain.ErrConversionFailed)
	}
	return *out.SQL, nil
}

// Execute runs a formal query on the backend. An empty result is returned
// as-is; callers decide how to render it.
func (c *Client) Execute(ctx context.Context, query string) (string, error) {
	var out executeResponse
	if err := c.postJSON(ctx, "execute", c.cfg.ExecutePath, executeRequest{Query: query}, &out); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExecutionFailed, err)
	}
	if out.ResultsInCSV == nil {
		return "", fmt.Errorf("%w: response has no resultsInCsv field", domain.ErrExecutionFailed)
	}
	return *out.ResultsInCSV, nil
}

func (c *Client) postJSON(ctx context.Context, op string, path string, in any, out any) error {
	encoded, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	payload, err := c.post(ctx, op, path, "application/json", bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
