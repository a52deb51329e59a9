package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/upb/book-tracker/client"
	"github.com/upb/book-tracker/config"
	"github.com/upb/book-tracker/internal/observability"
	"github.com/upb/book-tracker/models"
	"go.uber.org/zap"
)

const usage = `usage: booktracker <command> [flags]

commands:
  register -name NAME -email EMAIL -password PASSWORD
  login    -email EMAIL -password PASSWORD
  logout
  whoami              decode the stored access token
  verify              ask the server whether the session is valid
  me                  the identity the server sees
  books               list the catalogue
  search   -q QUERY [-author ID]
  authors  [-q QUERY]
  library             list your books
  add      -book ID [-status STATUS] [-rating N]
  remove   -book ID

Credentials persist between invocations only when REDIS_ADDR is set.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "booktracker: %v\n", err)
		if errors.Is(err, client.ErrSessionExpired) || errors.Is(err, client.ErrNotAuthenticated) {
			fmt.Fprintln(os.Stderr, "please log in again")
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, cleanup, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return dispatch(ctx, c, args[0], args[1:], out)
}

// newClient builds a client whose credentials live in Redis when
// configured and in process memory otherwise.
func newClient(cfg *config.ClientConfig, logger *zap.Logger) (*client.Client, func(), error) {
	opts := []client.Option{
		client.WithRefreshTimeout(cfg.RefreshTimeout),
		client.WithLogger(logger),
		client.OnSessionExpired(func(err error) {
			logger.Warn("session expired", zap.Error(err))
		}),
	}
	cleanup := func() {}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store, err := client.NewRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.SessionID)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		opts = append(opts, client.WithStore(store))
		cleanup = func() { _ = rdb.Close() }
	}

	c, err := client.New(cfg.BaseURL, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return c, cleanup, nil
}

func dispatch(ctx context.Context, c *client.Client, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		name     = fs.String("name", "", "full name")
		email    = fs.String("email", "", "email address")
		password = fs.String("password", "", "password")
		query    = fs.String("q", "", "search query")
		author   = fs.String("author", "", "author id")
		book     = fs.String("book", "", "book id")
		status   = fs.String("status", "", "reading status")
		rating   = fs.Int("rating", -1, "rating from 0 to 5")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd {
	case "register":
		user, err := c.Register(ctx, *name, *email, *password)
		if err != nil {
			return err
		}
		return printJSON(out, user)

	case "login":
		user, err := c.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		return printJSON(out, user)

	case "logout":
		return c.Logout(ctx)

	case "whoami":
		claims, err := c.Session(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]interface{}{
			"id":        claims.SubjectID,
			"email":     claims.Email,
			"full_name": claims.DisplayName,
			"role":      claims.Role,
			"expiresAt": claims.ExpiresAt,
		})

	case "verify":
		if err := c.Verify(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "Token is valid")
		return err

	case "me":
		identity, err := c.Me(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, identity)

	case "books":
		books, err := c.ListBooks(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, books)

	case "search":
		books, err := c.SearchBooks(ctx, *query, *author)
		if err != nil {
			return err
		}
		return printJSON(out, books)

	case "authors":
		var (
			authors []models.Author
			err     error
		)
		if *query != "" {
			authors, err = c.SearchAuthors(ctx, *query)
		} else {
			authors, err = c.ListAuthors(ctx)
		}
		if err != nil {
			return err
		}
		return printJSON(out, authors)

	case "library", "add", "remove":
		claims, err := c.Session(ctx)
		if err != nil {
			return err
		}
		return libraryCommand(ctx, c, cmd, claims.SubjectID, *book, *status, *rating, out)

	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func libraryCommand(ctx context.Context, c *client.Client, cmd, userID, book, status string, rating int, out io.Writer) error {
	if cmd == "library" {
		entries, err := c.ListUserBooks(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(out, entries)
	}

	bookID, err := uuid.Parse(book)
	if err != nil {
		return fmt.Errorf("-book must be a book id: %w", err)
	}
	if cmd == "remove" {
		if err := c.RemoveUserBook(ctx, userID, bookID.String()); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "Book removed from library")
		return err
	}

	input := models.UpsertUserBookInput{BookID: bookID}
	if status != "" {
		s := models.ReadingStatus(strings.ToLower(status))
		input.Status = &s
	}
	if rating >= 0 {
		input.Rating = &rating
	}
	entry, err := c.UpsertUserBook(ctx, userID, input)
	if err != nil {
		return err
	}
	return printJSON(out, entry)
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
