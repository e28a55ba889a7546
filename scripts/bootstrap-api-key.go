// Command bootstrap-api-key issues an API key for an existing user, for
// provisioning automation that cannot go through the login flow.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository"
	"github.com/warden/warden/internal/service"
)

type output struct {
	UserID    string     `json:"user_id"`
	Username  string     `json:"username"`
	KeyID     string     `json:"key_id"`
	Key       string     `json:"key"`
	KeyPrefix string     `json:"key_prefix"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		user        = flag.String("user", "", "Email or username of the key owner")
		name        = flag.String("name", "bootstrap", "API key name")
		days        = flag.Int("days", 0, "Days until expiry (0 for no expiry)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if strings.TrimSpace(*user) == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	owner, err := findUser(ctx, repo, *user)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	keys := service.NewAPIKeyService(repo, nil, service.APIKeyConfig{},
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	input := service.CreateAPIKeyInput{Name: *name}
	var issued *model.IssuedAPIKey
	if *days > 0 {
		issued, err = keys.CreateWithExpiry(ctx, owner.ID, input, *days)
	} else {
		issued, err = keys.CreateForUser(ctx, owner.ID, input)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "create api key:", err)
		os.Exit(1)
	}

	out := output{
		UserID:    owner.ID,
		Username:  owner.Username,
		KeyID:     issued.APIKey.ID,
		Key:       issued.Plaintext,
		KeyPrefix: issued.APIKey.KeyPrefix,
		ExpiresAt: issued.APIKey.ExpiresAt,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Key)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// findUser looks the identifier up as an email when it contains "@",
// otherwise as a username.
func findUser(ctx context.Context, repo *repository.Repository, identifier string) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)

	var (
		u   *model.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = repo.GetUserByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = repo.GetUserByUsername(ctx, identifier)
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("user %q not found", identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if !u.IsActive {
		return nil, fmt.Errorf("user %q is inactive", identifier)
	}
	return u, nil
}
