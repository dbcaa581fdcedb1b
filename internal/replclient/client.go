// Package replclient implements the interactive REPL client, grounded
// directly in original_source's client.rs rustyline::Editor loop:
// same prompt, same history file, same get/delete/insert/update
// command grammar, translated to chzyer/readline.
package replclient

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/chzyer/readline"

	"github.com/kvforge/wisckv/internal/protocol"
)

const prompt = "wisc-db>> "

// Client holds one TCP connection to a wisckv server and a readline
// editor for the interactive loop.
type Client struct {
	conn net.Conn
	rl   *readline.Instance
}

// Dial connects to addr and sets up the line editor with a history
// file at historyPath (empty disables history persistence).
func Dial(addr, historyPath string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("replclient: dial %s: %w", addr, err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyPath,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("replclient: init readline: %w", err)
	}

	return &Client{conn: conn, rl: rl}, nil
}

// Close releases the connection and the line editor.
func (c *Client) Close() error {
	c.rl.Close()
	return c.conn.Close()
}

// Run drives the read-eval-print loop until EOF or an explicit "exit".
func (c *Client) Run(out io.Writer) error {
	for {
		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		req, err := parseCommand(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		resp, err := c.roundTrip(req)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		fmt.Fprintln(out, formatResponse(resp))
	}
}

func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	if err := protocol.WriteRequest(c.conn, req); err != nil {
		return protocol.Response{}, err
	}
	return protocol.ReadResponse(bufio.NewReader(c.conn))
}

// parseCommand implements the grammar: get key | delete key |
// insert key value | update key value.
func parseCommand(line string) (protocol.Request, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 {
		return protocol.Request{}, fmt.Errorf("usage: get|delete key, or insert|update key value")
	}

	switch strings.ToLower(fields[0]) {
	case "get":
		return protocol.Request{Command: protocol.CmdGet, Key: fields[1]}, nil
	case "delete":
		return protocol.Request{Command: protocol.CmdDelete, Key: fields[1]}, nil
	case "insert":
		if len(fields) != 3 {
			return protocol.Request{}, fmt.Errorf("usage: insert key value")
		}
		return protocol.Request{Command: protocol.CmdInsert, Key: fields[1], Value: fields[2]}, nil
	case "update":
		if len(fields) != 3 {
			return protocol.Request{}, fmt.Errorf("usage: update key value")
		}
		return protocol.Request{Command: protocol.CmdUpdate, Key: fields[1], Value: fields[2]}, nil
	default:
		return protocol.Request{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

func formatResponse(resp protocol.Response) string {
	switch resp.Status {
	case protocol.StatusOK:
		if resp.Value != "" {
			return resp.Value
		}
		return "OK"
	case protocol.StatusNotFound:
		return "(not found)"
	case protocol.StatusKeyExists:
		return "(error) key already exists"
	case protocol.StatusKeyNotExist:
		return "(error) key does not exist"
	default:
		return "(error) " + resp.Value
	}
}
