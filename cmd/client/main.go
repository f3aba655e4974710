package main

import (
	"bufio"
	"chat-relay/client"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=http://localhost:4000"`
	LogLevel  string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run drives the terminal chat: connect, pick a name, then alternate
// between rendering relay events and reading stdin lines.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to the relay. An initial failure is reported but not
	// retried; joining later drives the reconnection path instead.
	c := client.NewClient(log, config.ServerURL)
	defer func() { _ = c.Close() }()

	if err := c.Connect(ctx); err != nil {
		color.Red.Printf("Could not reach %s: %v\n", config.ServerURL, err)
		color.Gray.Println("Joining will retry the connection.")
	} else {
		color.Green.Printf(">>> Connected to %s\n", config.ServerURL)
	}

	// 4. Render relay events in the background.
	go renderEvents(c)

	// 5. Pick a display name.
	stdin := bufio.NewScanner(os.Stdin)
	fmt.Print("Choose a name: ")
	if !stdin.Scan() {
		return exitOK, nil
	}
	if err := c.Join(ctx, stdin.Text()); err != nil {
		color.Red.Printf("Join failed: %v\n", err)
	}

	color.Gray.Println("Type a message and press Enter. /name <n> renames, /quit exits.")

	// 6. Input loop.
	for stdin.Scan() {
		select {
		case <-ctx.Done():
			return exitOK, nil
		default:
		}

		line := strings.TrimSpace(stdin.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return exitOK, nil
		case strings.HasPrefix(line, "/name "):
			if err := c.Join(ctx, strings.TrimPrefix(line, "/name ")); err != nil {
				color.Red.Printf("Join failed: %v\n", err)
			}
		default:
			if err := c.Send(ctx, line); err != nil {
				color.Red.Printf("Message not sent: %v\n", err)
			}
		}
	}

	if err := stdin.Err(); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

// renderEvents is the presentation consumer: it only renders, the client
// owns every decision about connection state.
func renderEvents(c *client.Client) {
	for evt := range c.Events() {
		timestamp := time.Now().Format("15:04")
		switch evt.Kind {
		case client.KindChat:
			if evt.Username == c.Username() {
				color.Green.Printf("[%s] %s: %s\n", timestamp, evt.Username, evt.Text)
			} else {
				color.Cyan.Printf("[%s] %s: ", timestamp, evt.Username)
				fmt.Println(evt.Text)
			}
		case client.KindJoin:
			color.Gray.Printf("-- %s joined the chat\n", evt.Username)
		case client.KindLeave:
			color.Gray.Printf("-- %s left the chat\n", evt.Username)
		case client.KindError:
			color.Red.Printf("!! %s\n", evt.Text)
		case client.KindSystem:
			color.Gray.Printf("-- %s\n", evt.Text)
		case client.KindRoster:
			renderRoster(evt.Users)
		}
	}
}

func renderRoster(users []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{fmt.Sprintf("Online (%d)", len(users))})
	table.AppendBulk(lo.Map(users, func(u string, _ int) []string {
		return []string{u}
	}))
	table.Render()
}
