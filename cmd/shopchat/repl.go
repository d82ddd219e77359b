package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mkarlsen/shopchat/pkg/dialog"
)

func runRepl(configPath, message string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	engine, _, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if strings.TrimSpace(message) != "" {
		reply := engine.Process(ctx, "", message)
		fmt.Println(reply.Text)
		return nil
	}

	fmt.Printf("%s %s — type 'exit' to quit\n", appName, formatVersion())
	interactive(ctx, engine)
	return nil
}

func interactive(ctx context.Context, engine *dialog.Engine) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You: ",
		HistoryFile:     filepath.Join(os.TempDir(), ".shopchat_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractive(ctx, engine)
		return
	}
	defer rl.Close()

	sessionID := ""
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		reply := engine.Process(ctx, sessionID, input)
		sessionID = reply.SessionID
		fmt.Printf("Bot: %s\n", reply.Text)
		for _, src := range reply.Sources {
			fmt.Printf("  - %s (%s)\n", src.Title, src.URL)
		}
	}
}

func simpleInteractive(ctx context.Context, engine *dialog.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	sessionID := ""
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		reply := engine.Process(ctx, sessionID, input)
		sessionID = reply.SessionID
		fmt.Printf("Bot: %s\n", reply.Text)
	}
}
