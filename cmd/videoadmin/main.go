// Command videoadmin provisions collections and permissions and issues tokens
// for the video manager service.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/vitovidale/video-manager-service/config"
	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/infrastructure"
)

const defaultTimeout = 30 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if os.Args[1] == "token" {
		if err := issueToken(cfg, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	db, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch os.Args[1] {
	case "collection":
		err = createCollection(ctx, db, dialect, os.Args[2:])
	case "grant":
		err = grant(ctx, db, dialect, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Video Manager administration")
	fmt.Println("")
	fmt.Println("Usage: videoadmin <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  collection <name>                          - Create a collection")
	fmt.Println("  grant <user_id> <collection_id> <action>   - Allow add, change or delete in a collection")
	fmt.Println("  token <user_id> <username> [superuser] [ttl] - Issue a bearer token (ttl default 24h)")
	fmt.Println("")
	fmt.Println("The database and JWT secret are taken from the same environment as the service.")
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, infrastructure.Dialect, error) {
	if cfg.DBDriver == "sqlite3" {
		db, err := infrastructure.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, 0, err
		}
		return db, infrastructure.DialectSQLite, infrastructure.Migrate(ctx, db, infrastructure.DialectSQLite)
	}
	db, err := infrastructure.OpenPostgres(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, 0, err
	}
	return db, infrastructure.DialectPostgres, infrastructure.Migrate(ctx, db, infrastructure.DialectPostgres)
}

func createCollection(ctx context.Context, db *sql.DB, dialect infrastructure.Dialect, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("usage: videoadmin collection <name>")
	}
	id, err := infrastructure.CreateCollection(ctx, db, dialect, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Created collection %q with ID %d\n", args[0], id)
	return nil
}

func grant(ctx context.Context, db *sql.DB, dialect infrastructure.Dialect, args []string) error {
	userID, collectionID, action, err := parseGrant(args)
	if err != nil {
		return err
	}
	policy := infrastructure.NewSQLPermissionPolicy(db, dialect)
	if err := policy.Grant(ctx, userID, collectionID, action); err != nil {
		return err
	}
	fmt.Printf("Granted %s on collection %d to user %d\n", action, collectionID, userID)
	return nil
}

func parseGrant(args []string) (userID, collectionID int, action string, err error) {
	if len(args) != 3 {
		return 0, 0, "", fmt.Errorf("usage: videoadmin grant <user_id> <collection_id> <action>")
	}
	if userID, err = strconv.Atoi(args[0]); err != nil || userID <= 0 {
		return 0, 0, "", fmt.Errorf("invalid user ID %q", args[0])
	}
	if collectionID, err = strconv.Atoi(args[1]); err != nil || collectionID <= 0 {
		return 0, 0, "", fmt.Errorf("invalid collection ID %q", args[1])
	}
	switch args[2] {
	case domain.PermissionAdd, domain.PermissionChange, domain.PermissionDelete:
		return userID, collectionID, args[2], nil
	}
	return 0, 0, "", fmt.Errorf("unknown action %q (want add, change or delete)", args[2])
}

func issueToken(cfg config.Config, args []string) error {
	user, ttl, err := parseTokenArgs(args)
	if err != nil {
		return err
	}
	token, err := infrastructure.SignToken([]byte(cfg.JWTSecret), user, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func parseTokenArgs(args []string) (domain.User, time.Duration, error) {
	if len(args) < 2 || len(args) > 4 {
		return domain.User{}, 0, fmt.Errorf("usage: videoadmin token <user_id> <username> [superuser] [ttl]")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return domain.User{}, 0, fmt.Errorf("invalid user ID %q", args[0])
	}
	user := domain.User{ID: id, Username: args[1]}
	ttl := 24 * time.Hour
	for _, arg := range args[2:] {
		if arg == "superuser" {
			user.IsSuperuser = true
			continue
		}
		if ttl, err = time.ParseDuration(arg); err != nil || ttl <= 0 {
			return domain.User{}, 0, fmt.Errorf("invalid ttl %q", arg)
		}
	}
	return user, ttl, nil
}
