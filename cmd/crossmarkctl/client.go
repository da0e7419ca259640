package main

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

// apiClient is a thin resty wrapper around the consumer API (spec §6).
// Like internal/crossmark.Client it holds one resty.Client, here with a
// bearer token set once, rather than hand-rolling net/http calls.
type apiClient struct {
	http *resty.Client
}

func newAPIClient(cmd *cobra.Command) (*apiClient, error) {
	baseURL, err := cmd.Flags().GetString("base-url")
	if err != nil {
		return nil, err
	}
	token, err := cmd.Flags().GetString("token")
	if err != nil {
		return nil, err
	}

	http := resty.New().SetBaseURL(baseURL)
	if token != "" {
		http.SetAuthToken(token)
	}
	return &apiClient{http: http}, nil
}

func (c *apiClient) get(ctx context.Context, path string, query map[string]string, out any) error {
	req := c.http.R().SetContext(ctx).SetResult(out)
	if query != nil {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return checkResponse(resp, err)
}

func (c *apiClient) post(ctx context.Context, path string, body any, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Post(path)
	return checkResponse(resp, err)
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %s", resp.Status(), string(resp.Body()))
	}
	return nil
}
