package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"respirapt-backend/internal/session"
	"respirapt-backend/internal/supabase"
	"respirapt-backend/pkg/logger"

	"github.com/joho/godotenv"
)

// respira is a terminal companion for the RespiraPT account: it signs in
// against the same Supabase project the app uses and keeps the session
// alive across runs.
func main() {
	_ = godotenv.Load()
	logger.Init()

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_ANON_KEY")
	if supabaseKey == "" {
		supabaseKey = os.Getenv("SUPABASE_KEY")
	}
	if supabaseURL == "" || supabaseKey == "" {
		fmt.Fprintln(os.Stderr, "SUPABASE_URL and SUPABASE_ANON_KEY must be set")
		os.Exit(1)
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	cachePath := filepath.Join(cacheDir, "respira", "session.json")

	client := supabase.NewClient(supabaseURL, supabaseKey)
	manager := supabase.NewSessionManager(client, cachePath, logger.Log)
	profiles := supabase.NewProfileStore(client, manager.AccessToken)

	store := session.NewStore(session.Deps{
		Provider: manager,
		Profiles: profiles,
		Logger:   logger.Log,
	})
	defer store.Close()

	ctx := context.Background()

	// Announce state changes as they commit, whatever their trigger.
	snapshots, cancel := store.Subscribe()
	defer cancel()
	go func() {
		for snap := range snapshots {
			printSnapshot(snap)
		}
	}()

	session.NewBootstrapper(store, logger.Log).Run(ctx)

	fmt.Println("respira - type 'help' for commands")
	printSnapshot(store.Snapshot())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			fmt.Println("commands: signup <email> <password> <name>, login <email> <password>, logout, whoami, refresh, quit")
		case "signup":
			if len(fields) < 4 {
				fmt.Println("usage: signup <email> <password> <name>")
				continue
			}
			name := strings.Join(fields[3:], " ")
			if err := store.SignUp(ctx, fields[1], fields[2], name); err != nil {
				printErr(err)
			}
		case "login":
			if len(fields) != 3 {
				fmt.Println("usage: login <email> <password>")
				continue
			}
			if err := store.SignIn(ctx, fields[1], fields[2]); err != nil {
				printErr(err)
			}
		case "logout":
			store.SignOut(ctx)
		case "whoami":
			printSnapshot(store.Snapshot())
		case "refresh":
			if err := store.RefreshUser(ctx); err != nil {
				printErr(err)
			}
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q, try 'help'\n", fields[0])
		}
	}
}

func printSnapshot(snap session.Snapshot) {
	switch {
	case snap.Loading:
		fmt.Println("[session] loading...")
	case snap.User == nil:
		fmt.Println("[session] anonymous")
	default:
		name := snap.User.Email
		if snap.User.Name != nil && *snap.User.Name != "" {
			name = *snap.User.Name
		}
		extra := ""
		if snap.Origin == session.OriginSynthesized {
			extra = " (profile pending sync)"
		}
		if snap.User.Premium {
			extra += " [premium]"
		}
		fmt.Printf("[session] signed in as %s%s\n", name, extra)
	}
}

func printErr(err error) {
	var credErr *session.CredentialError
	if errors.As(err, &credErr) {
		fmt.Printf("error: %s\n", credErr.Message)
		return
	}
	var resErr *session.ProfileResolutionError
	if errors.As(err, &resErr) {
		fmt.Println("error: your account works, but loading the profile failed; try 'refresh'")
		return
	}
	fmt.Printf("error: %v\n", err)
}
