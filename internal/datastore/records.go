package datastore

import (
	"context"
	"strconv"
)

// BulkCreateRecords atomically creates many rows at once. withTypecast asks
// the service to coerce values; some deployments reject the flag, so callers
// retry once without it before falling back to individual creation.
func (c *Client) BulkCreateRecords(ctx context.Context, tableID string, records []RecordPayload, withTypecast bool) ([]Record, error) {
	body := bulkCreateRequest{Records: records, Typecast: withTypecast}
	var out bulkCreateResponse
	resp, err := c.request(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/api/tables/" + tableID + "/records/bulk")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// CreateRecord creates a single row.
func (c *Client) CreateRecord(ctx context.Context, tableID string, record RecordPayload) (*Record, error) {
	var out Record
	resp, err := c.request(ctx).
		SetBody(record).
		SetResult(&out).
		Post("/api/tables/" + tableID + "/records")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRecords pages through a table's rows. offset is the opaque cursor from
// the previous page, empty for the first page.
func (c *Client) ListRecords(ctx context.Context, tableID string, pageSize int, offset string) (*RecordPage, error) {
	req := c.request(ctx).SetQueryParam("pageSize", strconv.Itoa(pageSize))
	if offset != "" {
		req.SetQueryParam("offset", offset)
	}
	var out RecordPage
	resp, err := req.SetResult(&out).Get("/api/tables/" + tableID + "/records")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}
