// Package chat is the transport under the game: a minimal IRC-style client
// that speaks line commands over TCP. The game layers its challenge and
// submission formats on top as ordinary channel messages; this package only
// moves lines and hands inbound traffic to handlers as (source, command,
// args) triples.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// dialTimeout bounds the initial TCP connect.
const dialTimeout = 10 * time.Second

// Handler consumes one parsed inbound message. source is the sender's nick,
// empty for lines originating from the server itself; command is the
// protocol verb; args holds the parameters with any trailing parameter
// unpacked as the final element.
type Handler func(source, command string, args []string)

// Client is a registered connection to the chat server. Methods that write
// may be called from multiple goroutines; a mutex serializes them onto the
// wire.
type Client struct {
	log  cmtlog.Logger
	addr string
	nick string

	conn net.Conn
	mu   sync.Mutex // guards writes to conn
}

// Dial connects to addr and registers nick with the server.
func Dial(addr, nick string, log cmtlog.Logger) (*Client, error) {
	if log == nil {
		log = cmtlog.NewNopLogger()
	}
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("chat: connect %s: %w", addr, err)
	}
	c := &Client{log: log, addr: addr, nick: nick, conn: conn}
	if err := c.register(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("chat: register %s: %w", nick, err)
	}
	c.log.Debug("registered", "addr", addr, "nick", nick)
	return c, nil
}

func (c *Client) register() error {
	if err := c.Send("NICK " + c.nick); err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("USER %s 0 * :%s", c.nick, c.nick))
}

// Nick returns the identity this client registered with.
func (c *Client) Nick() string { return c.nick }

// Send writes one raw protocol line.
func (c *Client) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", line); err != nil {
		return fmt.Errorf("chat: send: %w", err)
	}
	return nil
}

// JoinChannel enters a channel.
func (c *Client) JoinChannel(channel string) error {
	return c.Send("JOIN " + channel)
}

// SendMessage sends a visible message to a channel or user.
func (c *Client) SendMessage(target, text string) error {
	return c.Send(fmt.Sprintf("PRIVMSG %s :%s", target, text))
}

// Notice sends a notice to a channel or user.
func (c *Client) Notice(target, text string) error {
	return c.Send(fmt.Sprintf("NOTICE %s :%s", target, text))
}

// Close tears down the connection; a blocked Run returns soon after.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Run reads inbound lines until ctx is cancelled or the connection drops.
// Server PINGs are answered here; every other message is dispatched to the
// handlers in order, on the read goroutine.
func (c *Client) Run(ctx context.Context, handlers ...Handler) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		source, command, args := parseLine(line)
		if command == "PING" {
			token := ""
			if len(args) > 0 {
				token = args[len(args)-1]
			}
			if err := c.Send("PONG :" + token); err != nil {
				return err
			}
			c.log.Debug("ping answered", "token", token)
			continue
		}
		c.log.Debug("received", "source", source, "command", command, "args", strings.Join(args, "|"))
		for _, h := range handlers {
			h(source, command, args)
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("chat: read: %w", err)
	}
	// server closed the connection
	return nil
}

// parseLine splits one protocol line into source nick, command and
// arguments. Lines look like ":nick!user@host COMMAND arg1 :trailing
// words"; the source prefix and the trailing parameter are both optional,
// and the trailing parameter may contain spaces and colons.
func parseLine(line string) (source, command string, args []string) {
	rest := line
	if strings.HasPrefix(rest, ":") {
		prefix, remainder, _ := strings.Cut(rest[1:], " ")
		source = prefix
		if i := strings.IndexAny(source, "!@"); i >= 0 {
			source = source[:i]
		}
		rest = remainder
	}

	trailing := ""
	hasTrailing := false
	if i := strings.Index(rest, " :"); i >= 0 {
		trailing = rest[i+2:]
		rest = rest[:i]
		hasTrailing = true
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return source, "", nil
	}
	command = fields[0]
	if len(fields) > 1 {
		args = fields[1:]
	}
	if hasTrailing {
		args = append(args, trailing)
	}
	return source, command, args
}
