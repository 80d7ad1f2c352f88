package client

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

const usage = `usage: chatctl [flags] <command> [args]

commands:
  register <username>     create an account and store the token
  login <username>        log in and store the token
  upload <file>...        upload png/jpg/jpeg/gif images
  send <text>...          post a text message
  messages                print the chat history
  clear                   delete all uploads and messages
  add-time <seconds>      add worked seconds to your total
  health                  show server health
`

// App is the chatctl command-line front end.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	// Password, when set, is used instead of prompting on the terminal.
	Password string
}

// Run parses args (without the program name) and executes one command.
func (a *App) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chatctl", flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	fs.Usage = func() { fmt.Fprint(a.Stderr, usage) }

	server := fs.String("server", envOr("CHATTER_SERVER", "http://localhost:5001"), "server base URL")
	tokenPath := fs.String("token-file", defaultTokenPath(), "where the session token is kept")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return &ValidationError{Arg: "<command>", Cause: "no command given"}
	}

	c := New(*server)
	if token, err := LoadToken(*tokenPath); err == nil {
		c.SetToken(token)
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "register", "login":
		return a.authenticate(ctx, c, cmd, rest, *tokenPath)
	case "upload":
		return a.upload(ctx, c, rest)
	case "send":
		if len(rest) == 0 {
			return &ValidationError{Arg: "<text>", Cause: "no message given"}
		}
		if err := c.SendMessage(ctx, strings.Join(rest, " ")); err != nil {
			return err
		}
		fmt.Fprintln(a.Stdout, "✓ message sent")
		return nil
	case "messages":
		return a.messages(ctx, c)
	case "clear":
		if err := c.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.Stdout, "✓ all data cleared")
		return nil
	case "add-time":
		return a.addTime(ctx, c, rest)
	case "health":
		h, err := c.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Stdout, "status: %s, database: %s\n", h.Status, h.Database)
		return nil
	default:
		fs.Usage()
		return &ValidationError{Arg: cmd, Cause: "unknown command"}
	}
}

func (a *App) authenticate(ctx context.Context, c *Client, cmd string, args []string, tokenPath string) error {
	if len(args) != 1 || args[0] == "" {
		return &ValidationError{Arg: "<username>", Cause: "exactly one username required"}
	}
	username := args[0]

	password, err := a.password()
	if err != nil {
		return err
	}

	if cmd == "register" {
		err = c.Register(ctx, username, password)
	} else {
		err = c.Login(ctx, username, password)
	}
	if err != nil {
		return err
	}

	if err := SaveToken(tokenPath, c.Token()); err != nil {
		return err
	}
	fmt.Fprintf(a.Stdout, "✓ logged in as %s\n", username)
	return nil
}

func (a *App) password() (string, error) {
	if a.Password != "" {
		return a.Password, nil
	}
	fmt.Fprint(a.Stderr, "Enter password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

func (a *App) upload(ctx context.Context, c *Client, args []string) error {
	paths, err := ParseUploadPaths(args)
	if err != nil {
		return err
	}

	for _, p := range paths {
		res, err := c.Upload(ctx, p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		fmt.Fprintf(a.Stdout, "✓ %s → %s (%dx%d, %d bytes)\n",
			p, res.Filename, res.Metadata.OriginalWidth, res.Metadata.OriginalHeight, res.Metadata.CompressedSize)
	}
	return nil
}

func (a *App) messages(ctx context.Context, c *Client) error {
	msgs, err := c.Messages(ctx)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		text := m.Message
		if m.Type == "image" {
			text = "[image] " + text
		}
		fmt.Fprintf(a.Stdout, "%s %s: %s\n", m.Timestamp.Local().Format("2006-01-02 15:04:05"), m.Username, text)
	}
	return nil
}

func (a *App) addTime(ctx context.Context, c *Client, args []string) error {
	if len(args) != 1 {
		return &ValidationError{Arg: "<seconds>", Cause: "exactly one value required"}
	}
	seconds, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || seconds <= 0 {
		return &ValidationError{Arg: args[0], Cause: "must be a positive integer"}
	}

	total, err := c.AddTime(ctx, seconds)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Stdout, "✓ total working time: %ds\n", total)
	return nil
}

// LoadToken reads a stored session token.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.New("empty token file")
	}
	return token, nil
}

// SaveToken writes the session token readable by the owner only.
func SaveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chatter", "token")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
