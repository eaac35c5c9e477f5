package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"wgdashctl/internal/api"
	"wgdashctl/internal/app"
	"wgdashctl/internal/auth"
	"wgdashctl/internal/config"
	"wgdashctl/internal/connect"
	"wgdashctl/internal/logger"
	"wgdashctl/internal/session"
)

var (
	version   string
	buildDate string
)

// readLine prompts and reads one trimmed line from stdin.
func readLine(scanner *bufio.Scanner, prompt string) (string, bool) {
	fmt.Print(prompt)
	if !scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(scanner.Text()), true
}

// readSecret prompts and reads a value without echo when stdin is a
// terminal, falling back to a plain read otherwise.
func readSecret(scanner *bufio.Scanner, prompt string) (string, bool) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(scanner, prompt)
	}
	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

// serverSetup collects an address, validates it and, when the server asks
// for one, collects an API key and re-validates. Returns false when stdin is
// exhausted.
func serverSetup(ctx context.Context, scanner *bufio.Scanner, validator *connect.Validator, seed string) bool {
	prompt := "Server address"
	if seed != "" {
		prompt += fmt.Sprintf(" [%s]", seed)
	}
	addr, ok := readLine(scanner, prompt+": ")
	if !ok {
		return false
	}
	if addr == "" {
		addr = seed
	}

	outcome, err := validator.Validate(ctx, addr, "")
	if err != nil {
		fmt.Println("Validation already running, try again")
		return true
	}

	if outcome.State == connect.ApiKeyRequired {
		key, ok := readSecret(scanner, "API key: ")
		if !ok {
			return false
		}
		outcome, err = validator.Validate(ctx, addr, key)
		if err != nil {
			fmt.Println("Validation already running, try again")
			return true
		}
	}

	switch outcome.State {
	case connect.Valid:
		fmt.Println("Server validated")
	case connect.ApiKeyRequired:
		fmt.Println("API key required")
	default:
		fmt.Println(outcome.Reason)
	}
	return true
}

// login runs OTP discovery and one credential submission. Previously entered
// credentials are offered as defaults after a failed attempt.
func login(ctx context.Context, scanner *bufio.Scanner, flow *auth.Flow) bool {
	flow.Begin(ctx)

	prev := flow.Credentials()
	userPrompt := "Username"
	if prev.Username != "" {
		userPrompt += fmt.Sprintf(" [%s]", prev.Username)
	}
	username, ok := readLine(scanner, userPrompt+": ")
	if !ok {
		return false
	}
	if username == "" {
		username = prev.Username
	}

	password, ok := readSecret(scanner, "Password: ")
	if !ok {
		return false
	}
	if password == "" {
		password = prev.Password
	}

	otp := ""
	if flow.OtpRequired() {
		if otp, ok = readLine(scanner, "One-time password: "); !ok {
			return false
		}
	}

	flow.SetCredentials(username, password, otp)
	if !flow.CanSubmit() {
		fmt.Println("Username and password are required")
		return true
	}
	if ok, message := flow.Submit(ctx); !ok {
		fmt.Println("Sign-in failed:", message)
	}
	return true
}

// dashboard fetches and prints the configuration list, then handles the
// list/forget/exit commands. Returns false to quit.
func dashboard(ctx context.Context, scanner *bufio.Scanner, client *api.Client, store session.Store, sess *session.Session) bool {
	printConfigurations(client.FetchConfigurations(ctx))

	for {
		line, ok := readLine(scanner, "wgdashctl> ")
		if !ok {
			return false
		}
		switch line {
		case "help":
			fmt.Println("Available commands: help, list, forget, exit")
		case "list":
			printConfigurations(client.FetchConfigurations(ctx))
		case "forget":
			if err := store.Reset(); err != nil {
				fmt.Println("Could not forget server:", err)
				continue
			}
			sess.Authenticated = false
			fmt.Println("Server forgotten")
			return true
		case "exit":
			fmt.Println("Bye")
			return false
		case "":
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func printConfigurations(entries []api.ConfigurationEntry) {
	if len(entries) == 0 {
		fmt.Println("No configurations to show")
		return
	}
	fmt.Printf("%-16s %-20s %-8s %-8s %s\n", "NAME", "ADDRESS", "PORT", "STATUS", "PEERS")
	for _, e := range entries {
		status := "down"
		if e.Status {
			status = "up"
		}
		fmt.Printf("%-16s %-20s %-8s %-8s %d\n", e.Name, e.Address, e.ListenPort, status, e.ConnectedPeers)
	}
}

func main() {
	var showVer bool
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	options := config.Parse()

	if showVer {
		fmt.Printf("wgdashctl\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	store, err := session.NewStore(zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init session store", zap.Error(err))
	}

	sess, err := store.Load()
	if err != nil {
		zapLogger.Warn("cannot load session, starting fresh", zap.Error(err))
		sess = &session.Session{}
	}

	// Keep the in-memory session aligned with whatever the validator
	// persists; the authenticated flag stays owned by the auth flow.
	store.Subscribe(func(ns *session.Session) {
		if ns == nil {
			sess.ServerAddress = nil
			sess.APIKey = ""
			sess.Authenticated = false
			return
		}
		sess.ServerAddress = ns.ServerAddress
		sess.APIKey = ns.APIKey
	})

	httpClient := &http.Client{Timeout: time.Duration(options.TimeoutSeconds) * time.Second}
	client := api.New(httpClient, zapLogger)
	if sess.ServerAddress != nil {
		client.Configure(sess.ServerAddress, sess.APIKey)
	}

	validator := connect.New(client, store, zapLogger)
	flow := auth.New(client, sess, zapLogger)

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	seed := options.URL

	for {
		switch app.Route(sess) {
		case app.ScreenServerSetup:
			if !serverSetup(ctx, scanner, validator, seed) {
				return
			}
		case app.ScreenLogin:
			if !login(ctx, scanner, flow) {
				return
			}
		case app.ScreenDashboard:
			if !dashboard(ctx, scanner, client, store, sess) {
				return
			}
		}
	}
}
