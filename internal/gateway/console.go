package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/reqpilot/reqpilot/internal/agent"
)

// ConsoleGateway is a line-oriented REPL over stdin/stdout. Each process run
// is one conversation, identified by a fresh session id.
type ConsoleGateway struct {
	Agent     agent.Agent
	SessionID string
	in        io.Reader
	out       io.Writer
	done      chan struct{}
}

func NewConsoleGateway(a agent.Agent) *ConsoleGateway {
	return &ConsoleGateway{
		Agent:     a,
		SessionID: uuid.NewString(),
		in:        os.Stdin,
		out:       os.Stdout,
		done:      make(chan struct{}),
	}
}

func (cg *ConsoleGateway) Start() error {
	scanner := bufio.NewScanner(cg.in)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	fmt.Fprint(cg.out, "> ")
	for scanner.Scan() {
		select {
		case <-cg.done:
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		if line != "" {
			reply, err := cg.Agent.Chat(context.Background(), cg.SessionID, line)
			if err != nil {
				reply = fmt.Sprintf("error: %v", err)
			}
			fmt.Fprintln(cg.out, reply)
		}
		fmt.Fprint(cg.out, "> ")
	}
	return scanner.Err()
}

func (cg *ConsoleGateway) Send(chatID string, text string) error {
	_, err := fmt.Fprintln(cg.out, text)
	return err
}

func (cg *ConsoleGateway) Stop() error {
	close(cg.done)
	return nil
}
