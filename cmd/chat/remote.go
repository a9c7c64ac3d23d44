package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/room4-2/dinedialog/messages"
)

// runRemote chats with a server over its websocket endpoint. Presentation
// options are decided by the server.
func runRemote(ctx context.Context, opts *chatOptions, in io.Reader, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.serverURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", opts.serverURL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					fmt.Fprintln(out, errorStyle.Render("connection closed: "+err.Error()))
				}
				return
			}
			printServerMessage(ctx, out, data, opts)
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return closeConn(conn)
		case <-done:
			return nil
		case line, ok := <-lines:
			if !ok {
				return closeConn(conn)
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if strings.EqualFold(text, quitCommand) {
				return closeConn(conn)
			}
			msg, err := messages.NewUtteranceMessage(text)
			if err != nil {
				return err
			}
			data, err := messages.Encode(msg)
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

func printServerMessage(ctx context.Context, out io.Writer, data []byte, opts *chatOptions) {
	var env struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := messages.Decode(data, &env); err != nil {
		fmt.Fprintln(out, errorStyle.Render(err.Error()))
		return
	}
	switch env.Type {
	case messages.TypePrompt:
		text, _ := env.Payload["text"].(string)
		if opts.upper {
			text = strings.ToUpper(text)
		}
		say(ctx, out, text, opts.delay)
	case messages.TypeStatus:
		status, _ := env.Payload["status"].(string)
		fmt.Fprintln(out, mutedStyle.Render("["+status+"]"))
	case messages.TypeError:
		code, _ := env.Payload["code"].(string)
		message, _ := env.Payload["message"].(string)
		fmt.Fprintln(out, errorStyle.Render(code+": "+message))
	}
}

func closeConn(conn *websocket.Conn) error {
	return conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
