package datastore

import (
	"context"
	"strings"
)

// UploadFile uploads the raw source file as multipart form data and returns
// its descriptor. The descriptor URL is what recovery re-fetches later.
func (c *Client) UploadFile(ctx context.Context, name, mimeType, content string) (*FileDescriptor, error) {
	var out FileDescriptor
	resp, err := c.request(ctx).
		SetFileReader("file", name, strings.NewReader(content)).
		SetFormData(map[string]string{"mimeType": mimeType}).
		SetResult(&out).
		Post("/api/files")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFile re-reads a file's metadata row to obtain a fresh download URL.
func (c *Client) GetFile(ctx context.Context, fileID string) (*FileDescriptor, error) {
	var out FileDescriptor
	resp, err := c.request(ctx).
		SetResult(&out).
		Get("/api/files/" + fileID)
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadFile fetches file content from a download URL. bearer selects the
// credential: an elevated token, the static token (empty bearer), or no
// credential at all when anonymous is true. Recovery walks these from most
// to least privileged.
func (c *Client) DownloadFile(ctx context.Context, url, bearer string, anonymous bool) (string, error) {
	req := c.http.R().SetContext(ctx)
	switch {
	case anonymous:
		// no Authorization header
	case bearer != "":
		req.SetHeader("Authorization", "Bearer "+bearer)
	case c.staticToken != "":
		req.SetHeader("Authorization", "Bearer "+c.staticToken)
	}
	resp, err := req.Get(url)
	if err := check(resp, err); err != nil {
		return "", err
	}
	return resp.String(), nil
}
