package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/oddsmill/oddsmill/internal/schema"
)

// Options names the columns to read from the contact CSV. Matching is
// case-insensitive.
type Options struct {
	OutcomeColumn   string
	PromotionColumn string
	ChannelColumn   string
	// Delimiter is the CSV field separator. 0 means comma.
	Delimiter rune
	// HTTPTimeout bounds a remote fetch. 0 means 60s.
	HTTPTimeout time.Duration
}

// DefaultOptions matches the season-pass dataset header.
func DefaultOptions() Options {
	return Options{
		OutcomeColumn:   "Pass",
		PromotionColumn: "Promo",
		ChannelColumn:   "Channel",
		HTTPTimeout:     60 * time.Second,
	}
}

// Load reads contact rows from a local file path or an http(s) URL. I/O
// only: rows come back as raw strings for the schema normalizer to validate.
func Load(ctx context.Context, source string, opt Options) ([]schema.RawRow, error) {
	var r io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		rc, err := fetch(ctx, source, opt.HTTPTimeout)
		if err != nil {
			return nil, err
		}
		r = rc
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		r = f
	}
	defer r.Close()
	return Parse(r, opt)
}

func fetch(ctx context.Context, url string, timeout time.Duration) (io.ReadCloser, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("fetch: unexpected status %s: %s", resp.Status, string(b))
	}
	return resp.Body, nil
}

// Parse reads the three named columns out of CSV data. Extra columns are
// ignored; missing named columns are an error.
func Parse(r io.Reader, opt Options) ([]schema.RawRow, error) {
	cr := csv.NewReader(r)
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read header: empty input")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	outIdx, promoIdx, chanIdx := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case strings.ToLower(opt.OutcomeColumn):
			outIdx = i
		case strings.ToLower(opt.PromotionColumn):
			promoIdx = i
		case strings.ToLower(opt.ChannelColumn):
			chanIdx = i
		}
	}
	if outIdx < 0 || promoIdx < 0 || chanIdx < 0 {
		return nil, fmt.Errorf("header missing required columns %q, %q, %q (got %v)",
			opt.OutcomeColumn, opt.PromotionColumn, opt.ChannelColumn, header)
	}

	var rows []schema.RawRow
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if outIdx >= len(rec) || promoIdx >= len(rec) || chanIdx >= len(rec) {
			return nil, fmt.Errorf("read row %d: too few fields (%d)", len(rows)+1, len(rec))
		}
		rows = append(rows, schema.RawRow{
			Outcome:   rec[outIdx],
			Promotion: rec[promoIdx],
			Channel:   rec[chanIdx],
		})
	}
	return rows, nil
}
