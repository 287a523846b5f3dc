package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"TaiexCache/internal/model"
)

// BrokerClient reads index kbars and snapshots from the brokerage REST
// gateway. It serves as both HistoryFetcher and SnapshotFetcher.
type BrokerClient struct {
	BaseURL   string
	APIKey    string
	Client    *http.Client
	SymbolMap map[string]string // instrument -> broker contract code
	Location  *time.Location
}

// NewBrokerClient creates a client with optional proxy support.
func NewBrokerClient(baseURL, apiKey, proxyURL string, loc *time.Location) *BrokerClient {
	if loc == nil {
		loc = time.Local
	}
	return &BrokerClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"TSE": "TSE001",
			"OTC": "OTC101",
		},
		Location: loc,
	}
}

func (c *BrokerClient) Name() string { return "broker" }

func (c *BrokerClient) code(instrument string) string {
	if mapped, ok := c.SymbolMap[instrument]; ok {
		return mapped
	}
	return instrument
}

// kbarsResponse is the columnar kbar payload; ts is epoch nanoseconds.
type kbarsResponse struct {
	TS     []int64   `json:"ts"`
	Open   []float64 `json:"Open"`
	High   []float64 `json:"High"`
	Low    []float64 `json:"Low"`
	Close  []float64 `json:"Close"`
	Amount []float64 `json:"Amount"`
}

type brokerSnapshot struct {
	Code        string  `json:"code"`
	TS          int64   `json:"ts"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	TotalAmount float64 `json:"total_amount"`
}

func (c *BrokerClient) FetchHistory(ctx context.Context, instrument string, start, end time.Time) ([]model.Row, error) {
	q := url.Values{}
	q.Set("code", c.code(instrument))
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", end.Format("2006-01-02"))
	endpoint := fmt.Sprintf("%s/api/v1/kbars?%s", c.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var kb kbarsResponse
	if err := c.do(req, &kb); err != nil {
		return nil, fmt.Errorf("fetch kbars: %w", err)
	}

	n := len(kb.TS)
	if len(kb.Open) != n || len(kb.High) != n || len(kb.Low) != n || len(kb.Close) != n || len(kb.Amount) != n {
		return nil, fmt.Errorf("fetch kbars: column lengths differ")
	}
	bars := make([]model.Bar, n)
	for i := range kb.TS {
		bars[i] = model.Bar{
			Time:   time.Unix(0, kb.TS[i]),
			Open:   kb.Open[i],
			High:   kb.High[i],
			Low:    kb.Low[i],
			Close:  kb.Close[i],
			Amount: kb.Amount[i],
		}
	}
	rows := AggregateDaily(bars, c.Location)
	return inRange(rows, model.DateOf(start, c.Location), model.DateOf(end, c.Location)), nil
}

func (c *BrokerClient) FetchSnapshots(ctx context.Context, instruments []string) ([]model.Snapshot, error) {
	byCode := make(map[string]string, len(instruments))
	codes := make([]string, len(instruments))
	for i, inst := range instruments {
		codes[i] = c.code(inst)
		byCode[codes[i]] = inst
	}
	body, err := json.Marshal(map[string][]string{"codes": codes})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/v1/snapshots", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var raw []brokerSnapshot
	if err := c.do(req, &raw); err != nil {
		return nil, fmt.Errorf("fetch snapshots: %w", err)
	}

	snaps := make([]model.Snapshot, 0, len(raw))
	for _, s := range raw {
		inst, ok := byCode[s.Code]
		if !ok {
			continue
		}
		snaps = append(snaps, model.Snapshot{
			Instrument:  inst,
			Open:        s.Open,
			High:        s.High,
			Low:         s.Low,
			Close:       s.Close,
			TotalAmount: s.TotalAmount,
			Timestamp:   time.Unix(0, s.TS),
		})
	}
	return snaps, nil
}

func (c *BrokerClient) do(req *http.Request, out any) error {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
