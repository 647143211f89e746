package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// ErrDiffConflict is returned by ApplyWrite when the provider refuses a
// guarded write because the document changed since the diff was captured.
var ErrDiffConflict = errors.New("diff conflict")

// Client speaks the provider protocol over any reliable duplex byte stream:
// a child process's stdio, a net.Pipe end, or a TCP connection. Calls are
// serialized; the protocol is strict request/response.
type Client struct {
	mu     sync.Mutex
	w      io.Writer
	r      *bufio.Reader
	closer io.Closer
	nextID int
}

func NewClient(rw io.ReadWriter) *Client {
	c := &Client{w: rw, r: bufio.NewReader(rw)}
	if cl, ok := rw.(io.Closer); ok {
		c.closer = cl
	}
	return c
}

func (c *Client) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = b
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	req := Request{JSONRPC: "2.0", ID: strconv.Itoa(c.nextID), Method: method, Params: raw}

	done := make(chan error, 1)
	var body []byte
	go func() {
		if err := writeFrame(c.w, req); err != nil {
			done <- err
			return
		}
		b, err := readFrame(c.r)
		body = b
		done <- err
	}()

	select {
	case <-ctx.Done():
		// The stream is out of sync once a call is abandoned mid-flight.
		if c.closer != nil {
			c.closer.Close()
		}
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if resp.Error != nil {
		if resp.Error.Code == CodeDiffConflict {
			return fmt.Errorf("%s: %w", resp.Error.Message, ErrDiffConflict)
		}
		return fmt.Errorf("%s: %s", method, resp.Error.Message)
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) Initialize(ctx context.Context) error {
	return c.call(ctx, "mcp/initialize", nil, nil)
}

func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.call(ctx, "ping", nil, &out); err != nil {
		return err
	}
	if out.Message != "pong" {
		return fmt.Errorf("unexpected ping reply: %q", out.Message)
	}
	return nil
}

func (c *Client) List(ctx context.Context, root string, exts []string) ([]string, error) {
	var out struct {
		Files []string `json:"files"`
	}
	err := c.call(ctx, "fs/list", map[string]any{"root": root, "exts": exts}, &out)
	return out.Files, err
}

func (c *Client) ReadText(ctx context.Context, root, name string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	err := c.call(ctx, "fs/readText", map[string]any{"root": root, "name": name}, &out)
	return out.Text, err
}

func (c *Client) ReadLast(ctx context.Context, root string) (string, error) {
	var out struct {
		Name string `json:"name"`
		Text string `json:"text"`
	}
	err := c.call(ctx, "fs/readLast", map[string]any{"root": root}, &out)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("--- %s ---\n%s", out.Name, out.Text), nil
}

func (c *Client) Count(ctx context.Context, root string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.call(ctx, "fs/count", map[string]any{"root": root}, &out)
	return out.Count, err
}

func (c *Client) NextID(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.call(ctx, "scribe/nextId", nil, &out)
	return out.ID, err
}

func (c *Client) PreviewCreate(ctx context.Context, title string) (name, content string, err error) {
	var out struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	err = c.call(ctx, "scribe/previewCreate", map[string]any{"title": title}, &out)
	return out.Name, out.Content, err
}

func (c *Client) Diff(ctx context.Context, root, name, content string) (string, error) {
	var out struct {
		Diff string `json:"diff"`
	}
	err := c.call(ctx, "scribe/diff", map[string]any{"root": root, "name": name, "content": content}, &out)
	return out.Diff, err
}

func (c *Client) ApplyWrite(ctx context.Context, root, name, content, expectedDiff string) error {
	params := map[string]any{"root": root, "name": name, "content": content, "expectedDiff": expectedDiff}
	return c.call(ctx, "scribe/applyWrite", params, nil)
}

func (c *Client) Shutdown(ctx context.Context) error {
	return c.call(ctx, "mcp/shutdown", nil, nil)
}
