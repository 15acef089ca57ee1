package datastore

import "context"

// Schema-mutating calls all require the elevated bearer credential.

// CreateTable creates a table and returns it with whatever scaffold fields
// the service auto-created.
func (c *Client) CreateTable(ctx context.Context, bearer, name string) (*Table, error) {
	var out Table
	resp, err := c.bearerRequest(ctx, bearer).
		SetBody(map[string]string{"name": name}).
		SetResult(&out).
		Post("/api/tables")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTable removes a table. Used for best-effort teardown after a
// provisioning failure.
func (c *Client) DeleteTable(ctx context.Context, bearer, tableID string) error {
	resp, err := c.bearerRequest(ctx, bearer).
		Delete("/api/tables/" + tableID)
	return check(resp, err)
}

// CreateField adds a field to a table.
func (c *Client) CreateField(ctx context.Context, bearer, tableID, name, fieldType string) (*Field, error) {
	var out Field
	resp, err := c.bearerRequest(ctx, bearer).
		SetBody(map[string]string{"name": name, "type": fieldType}).
		SetResult(&out).
		Post("/api/tables/" + tableID + "/fields")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameField renames an existing field. The primary field is repurposed
// this way because the service refuses to delete it.
func (c *Client) RenameField(ctx context.Context, bearer, tableID, fieldID, name string) error {
	resp, err := c.bearerRequest(ctx, bearer).
		SetBody(map[string]string{"name": name}).
		Patch("/api/tables/" + tableID + "/fields/" + fieldID)
	return check(resp, err)
}

// DeleteField removes a field from a table.
func (c *Client) DeleteField(ctx context.Context, bearer, tableID, fieldID string) error {
	resp, err := c.bearerRequest(ctx, bearer).
		Delete("/api/tables/" + tableID + "/fields/" + fieldID)
	return check(resp, err)
}

// ListFields fetches the final field list of a table.
func (c *Client) ListFields(ctx context.Context, bearer, tableID string) ([]Field, error) {
	var out struct {
		Fields []Field `json:"fields"`
	}
	resp, err := c.bearerRequest(ctx, bearer).
		SetResult(&out).
		Get("/api/tables/" + tableID + "/fields")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Fields, nil
}
