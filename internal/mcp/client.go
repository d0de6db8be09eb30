package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"

	"github.com/Assassin199108/pokemon-agent-backend/config"
)

// Client talks to one tool host over its stdio
type Client struct {
	name string
	cmd  *exec.Cmd

	mu     sync.Mutex
	nextID int
	stdin  io.WriteCloser
	dec    *json.Decoder
	broken bool
}

// Dial spawns the host subprocess and wires its pipes
func Dial(cfg config.ToolHostConfig) (*Client, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}
	return &Client{
		name:  cfg.Name,
		cmd:   cmd,
		stdin: stdin,
		dec:   json.NewDecoder(bufio.NewReader(stdout)),
	}, nil
}

func (c *Client) Name() string { return c.name }

// call sends one request and reads one response. The host processes
// requests in order, so the whole exchange is serialized.
func (c *Client) call(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil, fmt.Errorf("tool host %s is down", c.name)
	}

	c.nextID++
	req := rpcReq{JSONRPC: "2.0", ID: c.nextID, Method: method, Params: params}
	if err := json.NewEncoder(c.stdin).Encode(req); err != nil {
		c.broken = true
		return nil, fmt.Errorf("write to %s: %w", c.name, err)
	}

	type decoded struct {
		resp rpcResp
		err  error
	}
	ch := make(chan decoded, 1)
	go func() {
		var resp rpcResp
		err := c.dec.Decode(&resp)
		ch <- decoded{resp, err}
	}()

	select {
	case <-ctx.Done():
		// the pending response can no longer be matched to a request
		c.broken = true
		return nil, ctx.Err()
	case d := <-ch:
		if d.err != nil {
			c.broken = true
			return nil, fmt.Errorf("read from %s: %w", c.name, d.err)
		}
		if d.resp.Error != nil {
			return nil, fmt.Errorf("%s: %s", c.name, d.resp.Error.Message)
		}
		return d.resp.Result, nil
	}
}

// ListTools asks the host what it can do
func (c *Client) ListTools(ctx context.Context) ([]ToolDesc, error) {
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(result["tools"])
	if err != nil {
		return nil, err
	}
	var tools []ToolDesc
	if err := json.Unmarshal(raw, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// CallTool invokes a named tool on the host
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	return c.call(ctx, "tools/call", map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
}

// Close tears the subprocess down
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broken = true
	_ = c.stdin.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	return c.cmd.Wait()
}

// RemoteTool is one tool advertised by a connected host
type RemoteTool struct {
	Host string
	Desc ToolDesc
}

// Manager connects to every configured tool host. Hosts that fail to start
// or list are skipped; the agent still runs with local tools.
type Manager struct {
	clients map[string]*Client
	tools   []RemoteTool
	logger  *log.Logger
}

func NewManager(ctx context.Context, hosts []config.ToolHostConfig) *Manager {
	m := &Manager{
		clients: make(map[string]*Client),
		logger:  log.New(log.Writer(), "[TOOLHOST] ", log.LstdFlags),
	}
	for _, host := range hosts {
		client, err := Dial(host)
		if err != nil {
			m.logger.Printf("skipping host %s: %v", host.Name, err)
			continue
		}
		tools, err := client.ListTools(ctx)
		if err != nil {
			m.logger.Printf("skipping host %s: list tools: %v", host.Name, err)
			_ = client.Close()
			continue
		}
		m.clients[host.Name] = client
		for _, t := range tools {
			m.tools = append(m.tools, RemoteTool{Host: host.Name, Desc: t})
		}
		m.logger.Printf("host %s connected with %d tools", host.Name, len(tools))
	}
	return m
}

// Tools returns every remote tool across connected hosts
func (m *Manager) Tools() []RemoteTool { return m.tools }

// Call routes a tool invocation to its host
func (m *Manager) Call(ctx context.Context, host, tool string, args map[string]interface{}) (map[string]interface{}, error) {
	client, ok := m.clients[host]
	if !ok {
		return nil, fmt.Errorf("unknown tool host %s", host)
	}
	return client.CallTool(ctx, tool, args)
}

// Close shuts every host down
func (m *Manager) Close() {
	for _, client := range m.clients {
		_ = client.Close()
	}
}
