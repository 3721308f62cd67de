package opencast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
)

const maxLoggedBodySize = 512

func (c *Client) endpoint(path string) string {
	return c.serverURL.JoinPath(path).String()
}

func (c *Client) authorize(req *http.Request) {
	if c.login.Mode != LoginModeBasic {
		return
	}
	var password string
	if c.login.Password != nil {
		password = c.login.Password.Get()
	}
	req.SetBasicAuth(c.login.Username, password)
}

// do executes the request and classifies the failure, if any. The response
// body is returned only for 2xx responses.
func (c *Client) do(
	ctx context.Context,
	operation string,
	req *http.Request,
) (_ []byte, _err error) {
	logger.Tracef(ctx, "%s: %s %s", operation, req.Method, req.URL)
	defer func() { logger.Tracef(ctx, "/%s: %s %s: %v", operation, req.Method, req.URL, _err) }()

	c.authorize(req)
	newError := func(sentinel error, status int, err error) error {
		return &RequestError{
			Sentinel:  sentinel,
			Operation: operation,
			URL:       req.URL.String(),
			Status:    status,
			Err:       err,
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", operation, ctxErr)
		}
		return nil, newError(ErrNetwork, 0, err)
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, newError(ErrUnauthorized, status, nil)
	case status >= 300 && status < 400:
		return nil, newError(ErrUnexpectedRedirect, status, fmt.Errorf("redirected to '%s'", resp.Header.Get("Location")))
	case status < 200 || status >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodySize))
		logger.Debugf(ctx, "%s: HTTP %d: %s", operation, status, strings.TrimSpace(string(snippet)))
		return nil, newError(ErrNotOK, status, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", operation, ctxErr)
		}
		return nil, newError(ErrNetwork, status, fmt.Errorf("unable to read the response: %w", err))
	}
	return body, nil
}

func (c *Client) getJSON(
	ctx context.Context,
	operation string,
	path string,
	dest any,
) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build a request for '%s': %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	body, err := c.do(ctx, operation, req)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return nil, &RequestError{
			Sentinel:  ErrInvalidJSON,
			Operation: operation,
			URL:       req.URL.String(),
			Err:       err,
		}
	}
	return body, nil
}

func (c *Client) getText(
	ctx context.Context,
	operation string,
	path string,
) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return "", fmt.Errorf("unable to build a request for '%s': %w", path, err)
	}
	body, err := c.do(ctx, operation, req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) postForm(
	ctx context.Context,
	operation string,
	path string,
	fields url.Values,
) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), strings.NewReader(fields.Encode()))
	if err != nil {
		return "", fmt.Errorf("unable to build a request for '%s': %w", path, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, err := c.do(ctx, operation, req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type formField struct {
	Name  string
	Value string
}

type formFile struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
}

// postMultipart sends the fields followed by the file. onSent (if not nil)
// is called with the amount of file bytes consumed by the transport so far.
func (c *Client) postMultipart(
	ctx context.Context,
	operation string,
	path string,
	fields []formField,
	file formFile,
	onSent func(sent int64),
) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, field := range fields {
		if err := mw.WriteField(field.Name, field.Value); err != nil {
			return "", fmt.Errorf("unable to write form field '%s': %w", field.Name, err)
		}
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {mime.FormatMediaType("form-data", map[string]string{
			"name":     file.FieldName,
			"filename": file.FileName,
		})},
		"Content-Type": {contentType},
	})
	if err != nil {
		return "", fmt.Errorf("unable to write the header of file '%s': %w", file.FileName, err)
	}
	headLen := buf.Len()
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("unable to finalize the form: %w", err)
	}
	head := buf.Bytes()[:headLen]
	tail := buf.Bytes()[headLen:]

	var fileReader io.Reader = bytes.NewReader(file.Data)
	if onSent != nil {
		fileReader = &countingReader{Reader: fileReader, OnRead: onSent}
	}
	body := io.MultiReader(bytes.NewReader(head), fileReader, bytes.NewReader(tail))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), body)
	if err != nil {
		return "", fmt.Errorf("unable to build a request for '%s': %w", path, err)
	}
	req.ContentLength = int64(len(head) + len(file.Data) + len(tail))
	req.Header.Set("Content-Type", mw.FormDataContentType())

	respBody, err := c.do(ctx, operation, req)
	if err != nil {
		return "", err
	}
	return string(respBody), nil
}

type countingReader struct {
	io.Reader
	Total  int64
	OnRead func(total int64)
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if n > 0 {
		r.Total += int64(n)
		r.OnRead(r.Total)
	}
	return n, err
}
