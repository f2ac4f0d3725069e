package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	"tickerpane/internal/httputil"
	"tickerpane/internal/models"
)

const defaultChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooClient fetches quotes and price history from Yahoo Finance.
// Quotes go through the finance-go client; history uses the v8 chart
// endpoint directly because finance-go's chart iterator cannot express
// the range/interval pairs the popup needs.
type YahooClient struct {
	chartURL   string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewYahooClient() *YahooClient {
	return &YahooClient{
		chartURL:   defaultChartURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

// FetchQuote returns the current price snapshot for a symbol.
// finance-go has no context support, so the call runs in a goroutine;
// on cancellation the in-flight request is abandoned and its eventual
// result discarded.
func (c *YahooClient) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if symbol == "" {
		return nil, quoteErr(symbol, fmt.Errorf("empty symbol"))
	}

	type result struct {
		q   *finance.Quote
		err error
	}
	ch := make(chan result, 1)
	go func() {
		q, err := quote.Get(symbol)
		ch <- result{q, err}
	}()

	select {
	case <-ctx.Done():
		return nil, quoteErr(symbol, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return nil, quoteErr(symbol, res.err)
		}
		if res.q == nil || res.q.RegularMarketPrice <= 0 {
			return nil, quoteErr(symbol, fmt.Errorf("no price data"))
		}
		name := res.q.ShortName
		if name == "" {
			name = symbol
		}
		return &models.Quote{
			Symbol:    symbol,
			Name:      name,
			Price:     res.q.RegularMarketPrice,
			PrevClose: res.q.RegularMarketPreviousClose,
			Timestamp: time.Now().UTC(),
		}, nil
	}
}

// chartResponse is the subset of the v8 chart document we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory returns the closing-price series for a symbol over a
// chart period. An empty upstream series is returned as an empty
// HistorySeries, not an error.
func (c *YahooClient) FetchHistory(ctx context.Context, symbol string, period models.ChartPeriod) (*models.HistorySeries, error) {
	if symbol == "" {
		return nil, historyErr(symbol, fmt.Errorf("empty symbol"))
	}
	if !period.Valid() {
		return nil, historyErr(symbol, fmt.Errorf("unsupported chart period %q", period))
	}

	u := fmt.Sprintf("%s/%s?range=%s&interval=%s",
		c.chartURL, url.PathEscape(symbol), period, period.BarInterval())

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		// Yahoo rejects the default Go user agent.
		req.Header.Set("User-Agent", "Mozilla/5.0")
		return req, nil
	})
	if err != nil {
		return nil, historyErr(symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, historyErr(symbol, fmt.Errorf("chart endpoint returned status %d", resp.StatusCode))
	}

	var doc chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, historyErr(symbol, fmt.Errorf("decode: %w", err))
	}
	if doc.Chart.Error != nil {
		return nil, historyErr(symbol, fmt.Errorf("%s: %s", doc.Chart.Error.Code, doc.Chart.Error.Description))
	}

	series := &models.HistorySeries{
		Symbol:    symbol,
		Period:    period,
		FetchedAt: time.Now().UTC(),
	}
	if len(doc.Chart.Result) == 0 {
		return series, nil
	}

	res := doc.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return series, nil
	}
	closes := res.Indicators.Quote[0].Close

	// Timestamps and closes are parallel arrays; closes can carry nulls
	// for halted bars, which we skip.
	n := len(res.Timestamp)
	if len(closes) < n {
		n = len(closes)
	}
	for i := 0; i < n; i++ {
		if closes[i] == nil {
			continue
		}
		series.Points = append(series.Points, models.PricePoint{
			Timestamp: time.Unix(res.Timestamp[i], 0).UTC(),
			Price:     *closes[i],
		})
	}
	return series, nil
}
