// Command chat is a terminal client for the yagptchat server. It drives
// the chatstate layer: sign in or up, pick a conversation, send
// messages with optimistic pending display, rename, update the API key,
// sign out.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"yagptchat/internal/apiclient"
	"yagptchat/internal/chatstate"
	"yagptchat/internal/models"
)

func main() {
	serverURL := flag.String("server", envOr("YAGPTCHAT_SERVER", "http://localhost:8080"), "chat server base URL")
	flag.Parse()

	client := apiclient.NewClient(*serverURL)
	sessions := chatstate.NewSessionManager(client)
	store := chatstate.NewStore(client)
	go store.Watch(sessions.Events())

	ctx := context.Background()
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 64*1024), 64*1024)

	fmt.Println("yagptchat. Type /help for commands.")

	if err := authenticate(ctx, in, sessions); err != nil {
		log.Fatalf("authentication failed: %v", err)
	}
	if err := store.LoadAll(ctx); err != nil {
		log.Fatalf("failed to load state: %v", err)
	}
	printConversations(store)

	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			sendMessage(ctx, store, line)
			continue
		}

		cmd, arg := splitCommand(line)
		switch cmd {
		case "/help":
			printHelp()
		case "/list":
			printConversations(store)
		case "/new":
			conv, err := store.Create(ctx, arg)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("created %q\n", conv.Title)
		case "/open":
			openConversation(store, arg)
		case "/rename":
			renameCurrent(ctx, store, arg)
		case "/key":
			if arg == "" {
				fmt.Println("usage: /key <yandex api key>")
				continue
			}
			if err := store.UpdateAPIKey(ctx, arg); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("API key updated.")
		case "/quit", "/exit":
			sessions.SignOut()
			return
		default:
			fmt.Println("unknown command, try /help")
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCommand(line string) (string, string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

func printHelp() {
	fmt.Println(`commands:
  /list           list conversations
  /new [title]    create a conversation and open it
  /open <n>       open the n-th listed conversation
  /rename <title> rename the open conversation
  /key <key>      update the stored Yandex API key
  /quit           sign out and exit
anything else is sent as a message to the open conversation`)
}

func authenticate(ctx context.Context, in *bufio.Scanner, sessions *chatstate.SessionManager) error {
	fmt.Print("login or signup? [l/s]: ")
	if !in.Scan() {
		return fmt.Errorf("stdin closed")
	}
	mode := strings.TrimSpace(strings.ToLower(in.Text()))

	email := prompt(in, "email: ")
	password := prompt(in, "password: ")

	if mode == "s" {
		apiKey := prompt(in, "yandex api key: ")
		return sessions.SignUp(ctx, email, password, apiKey)
	}
	return sessions.SignIn(ctx, email, password)
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func printConversations(store *chatstate.Store) {
	convs := store.Conversations()
	if len(convs) == 0 {
		fmt.Println("no conversations yet, /new to start one")
		return
	}
	for i, conv := range convs {
		fmt.Printf("%2d. %s (%d messages)\n", i+1, conv.Title, len(conv.Messages))
	}
}

func openConversation(store *chatstate.Store, arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		fmt.Println("usage: /open <n>")
		return
	}
	convs := store.Conversations()
	if n > len(convs) {
		fmt.Println("no such conversation")
		return
	}
	if err := store.SetCurrent(convs[n-1].ID); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("opened %q\n", convs[n-1].Title)
	printMessages(store.Display())
}

func renameCurrent(ctx context.Context, store *chatstate.Store, title string) {
	if title == "" {
		fmt.Println("usage: /rename <title>")
		return
	}
	conv, ok := store.Current()
	if !ok {
		fmt.Println("no conversation open")
		return
	}
	if err := store.Rename(ctx, conv.ID, title); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("renamed.")
}

func sendMessage(ctx context.Context, store *chatstate.Store, content string) {
	if _, ok := store.Current(); !ok {
		fmt.Println("no conversation open, /new or /open first")
		return
	}

	if _, err := store.Send(ctx, content); err != nil {
		fmt.Println("error:", err)
		return
	}
	printMessages(store.Display())
}

func printMessages(messages []models.Message) {
	for _, msg := range messages {
		label := "you"
		if msg.Role == models.RoleAssistant {
			label = "gpt"
		}
		fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Local().Format("15:04:05"), label, msg.Content)
	}
}
