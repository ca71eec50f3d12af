package feed

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ozgund/readbox/internal/models"
)

// acceptHeader asks upstream servers for feed content types, most
// specific first. Plenty of servers ignore it entirely; the parser copes.
const acceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8"

// Fetcher retrieves raw feed documents over HTTP. It does no parsing and
// no retries: a feed that is unreachable this run is simply picked up
// again by the next scheduled batch.
type Fetcher struct {
	client *resty.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: resty.New().SetTimeout(timeout),
	}
}

// FetchDocument performs a GET against the feed URL and returns the raw
// response body. Transport failures and non-2xx statuses both come back
// as a *models.FetchError; the status code is carried when there is one.
func (f *Fetcher) FetchDocument(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", acceptHeader).
		Get(url)
	if err != nil {
		return "", &models.FetchError{URL: url, Err: err}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", &models.FetchError{URL: url, StatusCode: resp.StatusCode()}
	}

	return string(resp.Body()), nil
}
