package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/client"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the session lifecycle: configuration, connection,
// terminal command loop, and a clean exit with a typed reason when the
// relay rejects or drops us.
func run() (int, error) {
	// 1. Configuration
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	username := flag.String("username", "", "username to join the room with")
	flag.Parse()

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect and authenticate.
	chat, err := client.Connect(ctx, config.ServerAddress, *username, log, render)
	if err != nil {
		return exitConfig, err
	}
	defer chat.Close()

	color.Cyan.Printf(">>> Connected to %s as %s\n", config.ServerAddress, *username)
	fmt.Println("Enter command (send <MSG> or leave): ")

	// 4. Terminal interaction.
	lines := make(chan string)
	go func() {
		defer close(lines)
		stdin := bufio.NewScanner(os.Stdin)
		for stdin.Scan() {
			lines <- stdin.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case <-chat.Done():
			if err := chat.Err(); err != nil {
				return exitRuntime, err
			}
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				// Terminal closed: leave the room and wait for the relay
				// to hang up.
				_ = chat.Leave()
				<-chat.Done()
				return exitOK, chat.Err()
			}
			dispatch(chat, line)
		}
	}
}

// dispatch maps one terminal line to a session action.
func dispatch(chat *client.ChatClient, line string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "send "):
		if err := chat.Send(strings.TrimPrefix(trimmed, "send ")); err != nil {
			color.Red.Printf("Could not send: %v\n", err)
		}
	case trimmed == "leave":
		if err := chat.Leave(); err != nil {
			color.Red.Printf("Could not leave: %v\n", err)
		}
	default:
		fmt.Println("Invalid command. Use 'send <MSG>' to send a message or 'leave' to disconnect.")
	}
}

// render displays one inbound event on the terminal.
func render(e client.Event) {
	switch e.Kind {
	case client.EventJoined:
		color.Green.Printf("%s joined\n", e.Username)
	case client.EventMessage:
		fmt.Printf("%s : %s\n", e.Username, e.Text)
	case client.EventLeft:
		color.Yellow.Printf("%s left\n", e.Username)
	}
}
