package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
)

// Server answers provider requests over a single duplex stream. One server
// serves one stream; run one per connection.
type Server struct {
	store *DocStore
}

func NewServer(store *DocStore) *Server {
	return &Server{store: store}
}

// Serve reads framed requests until EOF, shutdown, or context cancellation.
func (s *Server) Serve(ctx context.Context, rw io.ReadWriter) error {
	r := bufio.NewReader(rw)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		body, err := readFrame(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			log.Printf("mcp: dropping malformed request: %v", err)
			continue
		}
		resp, shutdown := s.handle(req)
		if err := writeFrame(rw, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if shutdown {
			return nil
		}
	}
}

func (s *Server) handle(req Request) (Response, bool) {
	result, err := s.dispatch(req)
	if err != nil {
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			rpcErr = &RPCError{Code: CodeInternal, Message: err.Error()}
		}
		return Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}, false
	}
	raw, _ := json.Marshal(result)
	return Response{JSONRPC: "2.0", ID: req.ID, Result: raw}, req.Method == "mcp/shutdown"
}

func (s *Server) dispatch(req Request) (any, error) {
	switch req.Method {
	case "mcp/initialize":
		return map[string]any{"capabilities": map[string]any{}}, nil
	case "mcp/shutdown":
		return map[string]any{"ok": true}, nil
	case "ping":
		return map[string]any{"ok": true, "message": "pong"}, nil

	case "fs/list":
		var p struct {
			Root string   `json:"root"`
			Exts []string `json:"exts"`
		}
		if err := params(req, &p); err != nil {
			return nil, err
		}
		files, err := s.store.List(p.Root, p.Exts)
		if err != nil {
			return nil, err
		}
		return map[string]any{"files": files}, nil

	case "fs/readText":
		var p struct {
			Root string `json:"root"`
			Name string `json:"name"`
		}
		if err := params(req, &p); err != nil {
			return nil, err
		}
		text, err := s.store.ReadText(p.Root, p.Name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"text": text}, nil

	case "fs/readLast":
		var p struct {
			Root string `json:"root"`
		}
		if err := params(req, &p); err != nil {
			return nil, err
		}
		name, err := s.lastName(p.Root)
		if err != nil {
			return nil, err
		}
		text, err := s.store.ReadText(p.Root, name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"name": name, "text": text}, nil

	case "fs/count":
		var p struct {
			Root string `json:"root"`
		}
		if err := params(req, &p); err != nil {
			return nil, err
		}
		n, err := s.store.Count(p.Root)
		if err != nil {
			return nil, err
		}
		return map[string]any{"count": n}, nil

	case "scribe/nextId":
		id, err := s.store.NextID()
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": id}, nil

	case "scribe/previewCreate":
		var p struct {
			Title string `json:"title"`
		}
		if err := params(req, &p); err != nil {
			return nil, err
		}
		name, content, err := s.store.PreviewCreate(p.Title)
		if err != nil {
			return nil, err
		}
		return map[string]any{"name": name, "content": content}, nil

	case "scribe/diff":
		var p struct {
			Root    string `json:"root"`
			Name    string `json:"name"`
			Content string `json:"content"`
		}
		if err := params(req, &p); err != nil {
			return nil, err
		}
		diff, err := s.store.Diff(p.Root, p.Name, p.Content)
		if err != nil {
			return nil, err
		}
		return map[string]any{"diff": diff}, nil

	case "scribe/applyWrite":
		var p struct {
			Root         string `json:"root"`
			Name         string `json:"name"`
			Content      string `json:"content"`
			ExpectedDiff string `json:"expectedDiff"`
		}
		if err := params(req, &p); err != nil {
			return nil, err
		}
		if err := s.store.ApplyWrite(p.Root, p.Name, p.Content, p.ExpectedDiff); err != nil {
			return nil, err
		}
		return map[string]any{"written": p.Name}, nil

	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// lastName picks the document with the numerically highest identifier.
func (s *Server) lastName(root string) (string, error) {
	names, err := s.store.List(root, nil)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no documents under %s", root)
	}
	sort.Slice(names, func(i, j int) bool {
		return docNumber(names[i]) < docNumber(names[j])
	})
	return names[len(names)-1], nil
}

func docNumber(name string) int {
	digits := keepDigits(strings.TrimSuffix(name, ".md"))
	if digits == "" {
		return -1
	}
	n := 0
	fmt.Sscanf(digits, "%d", &n)
	return n
}

func params(req Request, v any) error {
	if len(req.Params) == 0 {
		return &RPCError{Code: CodeInvalidParams, Message: "params required"}
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
