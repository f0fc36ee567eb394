package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/deskchat/internal/backend"
	"github.com/matheus3301/deskchat/internal/control"
	"github.com/matheus3301/deskchat/internal/profile"
	"github.com/matheus3301/deskchat/internal/store"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "status":
		withControl(name, func(ctx context.Context, c *control.Client) { cmdStatus(ctx, c, *jsonFlag) })
	case "send":
		text := strings.TrimSpace(strings.Join(args[1:], " "))
		if text == "" {
			fmt.Fprintln(os.Stderr, "usage: deskctl send <text>")
			os.Exit(1)
		}
		withControl(name, func(ctx context.Context, c *control.Client) {
			if err := c.Send(ctx, text); err != nil {
				fail(err)
			}
		})
	case "refresh":
		withControl(name, func(ctx context.Context, c *control.Client) {
			if err := c.Refresh(ctx); err != nil {
				fail(err)
			}
		})
	case "watch":
		cmdWatch(name, *jsonFlag)
	case "faq":
		cmdFAQ(name, *jsonFlag)
	case "history":
		cmdHistory(name, args[1:], *jsonFlag)
	case "search":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: deskctl search <query>")
			os.Exit(1)
		}
		cmdSearch(name, strings.Join(args[1:], " "), *jsonFlag)
	case "profiles":
		cmdProfiles(*jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: deskctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status              Show the running chat's state")
	fmt.Fprintln(os.Stderr, "  send <text>         Send a message through the running chat")
	fmt.Fprintln(os.Stderr, "  refresh             Re-resolve the support room")
	fmt.Fprintln(os.Stderr, "  watch               Stream chat events until interrupted")
	fmt.Fprintln(os.Stderr, "  faq                 Print the FAQ")
	fmt.Fprintln(os.Stderr, "  history [-limit n]  Print archived messages of the latest room")
	fmt.Fprintln(os.Stderr, "  search <query>      Search archived messages")
	fmt.Fprintln(os.Stderr, "  profiles            List known profiles")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func dialControl(name string) *control.Client {
	c, err := control.Dial(profile.SocketPath(name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach deskchat for profile %q: %v\n", name, err)
		os.Exit(1)
	}
	return c
}

func withControl(name string, fn func(context.Context, *control.Client)) {
	c := dialControl(name)
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, c)
}

func cmdStatus(ctx context.Context, c *control.Client, jsonOut bool) {
	state, err := c.State(ctx)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(state)
		return
	}
	fmt.Printf("Profile:    %v\n", state["profile"])
	fmt.Printf("Merchant:   %v (%v)\n", state["username"], state["user_id"])
	fmt.Printf("Connection: %v\n", state["connection"])
	if room, ok := state["room_id"]; ok {
		fmt.Printf("Room:       %v (%v)\n", room, state["room_status"])
	} else {
		fmt.Println("Room:       none")
	}
	fmt.Printf("Messages:   %v\n", state["message_count"])
	if blocked, _ := state["blocked"].(bool); blocked {
		fmt.Println("Blocked:    yes")
	}
}

func cmdWatch(name string, jsonOut bool) {
	c := dialControl(name)
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := c.Watch(ctx, func(evt control.Event) error {
		if jsonOut {
			outputJSON(evt)
			return nil
		}
		payload, _ := json.Marshal(evt.Payload)
		fmt.Printf("%s %-22s %s\n", evt.TS, evt.Kind, payload)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		fail(err)
	}
}

func cmdFAQ(name string, jsonOut bool) {
	cfg, err := profile.LoadConfig(name)
	if err != nil {
		fail(err)
	}
	if cfg.Token == "" {
		fail(fmt.Errorf("profile %q has no token configured", name))
	}

	client := backend.New(backend.Options{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.Token,
		Timeout: cfg.RequestTimeout(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()

	entries, err := client.FAQ(ctx)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(entries)
		return
	}
	if len(entries) == 0 {
		fmt.Println("No FAQ entries.")
		return
	}
	for _, e := range entries {
		if e.Category != "" {
			fmt.Printf("[%s] ", e.Category)
		}
		fmt.Printf("%s\n  %s\n\n", e.Question, e.Answer)
	}
}

func openArchive(name string) *store.DB {
	db, err := store.OpenMigrated(profile.ArchivePath(name))
	if err != nil {
		fail(fmt.Errorf("open archive: %w", err))
	}
	return db
}

func cmdHistory(name string, args []string, jsonOut bool) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 50, "maximum number of messages")
	roomFlag := fs.String("room", "", "room id (defaults to the most recent room)")
	_ = fs.Parse(args)

	db := openArchive(name)
	defer func() { _ = db.Close() }()

	roomID := *roomFlag
	if roomID == "" {
		rooms, err := db.ListRooms(1)
		if err != nil {
			fail(err)
		}
		if len(rooms) == 0 {
			fmt.Println("Archive is empty.")
			return
		}
		roomID = rooms[0].RoomID
	}

	msgs, err := db.ListMessages(roomID, 0, *limit)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(msgs)
		return
	}
	fmt.Printf("Room %s\n\n", roomID)
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		fmt.Printf("%s  %-10s %s\n", formatMillis(m.CreatedAt), senderLabel(m), messageBody(m))
	}
}

func cmdSearch(name, query string, jsonOut bool) {
	db := openArchive(name)
	defer func() { _ = db.Close() }()

	results, err := db.SearchMessages(query, "", 50)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(results)
		return
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range results {
		fmt.Printf("%s  %-10s %s\n", formatMillis(r.Message.CreatedAt), senderLabel(r.Message), r.Snippet)
	}
}

func cmdProfiles(jsonOut bool) {
	names, err := profile.List()
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(names)
		return
	}
	if len(names) == 0 {
		fmt.Println("No profiles found.")
		return
	}
	for _, n := range names {
		running := "stopped"
		if _, err := os.Stat(profile.SocketPath(n)); err == nil {
			running = "running"
		}
		fmt.Printf("%-20s %s (%s)\n", n, profile.Dir(n), running)
	}
}

func senderLabel(m store.Message) string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderRole
}

func messageBody(m store.Message) string {
	if m.MessageType == "image" {
		return "[image] " + m.ImageURL
	}
	return m.Body
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
