package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dnldd/candleview/shared"
)

// get performs a get request, mapping transport failures and non-success statuses
// to source unavailable errors carrying the status code and raw body text.
func get(ctx context.Context, httpc *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, &shared.SourceUnavailableError{Err: err}
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &shared.SourceUnavailableError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &shared.SourceUnavailableError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
