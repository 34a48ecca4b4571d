package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"
	"github.com/urfave/cli/v2"

	"github.com/sakif/usersdot/internal/model"
	"github.com/sakif/usersdot/internal/server"
)

var (
	demoNames     = []string{"Ali", "Ayse", "Mehmet", "Zeynep", "Can", "Elif", "Emre", "Selin"}
	demoSurnames  = []string{"Yilmaz", "Kaya", "Demir", "Sahin", "Celik", "Aydin", "Ozturk"}
	demoDistricts = []string{"Kadikoy", "Besiktas", "Cankaya", "Konak", "Nilufer"}
	demoRoles     = []string{"user", "editor", "admin"}
)

// demoUser returns the i-th demo user. The xid suffix keeps emails unique
// across repeated seed runs.
func demoUser(i int) model.UserInput {
	name := demoNames[i%len(demoNames)]
	surname := demoSurnames[i%len(demoSurnames)]
	age := 18 + i%50

	return model.UserInput{
		Name:     name,
		Surname:  surname,
		Email:    fmt.Sprintf("%s.%s.%s@example.com", strings.ToLower(name), strings.ToLower(surname), xid.New().String()),
		Password: "changeme",
		Phone:    fmt.Sprintf("+90 555 %03d %02d %02d", i%1000, i%100, (i*7)%100),
		Age:      &age,
		Country:  "Turkey",
		District: demoDistricts[i%len(demoDistricts)],
		Role:     demoRoles[i%len(demoRoles)],
	}
}

// UserCreator is the slice of the service seeding needs.
type UserCreator interface {
	Create(ctx context.Context, input model.UserInput) (*model.User, error)
}

// seedUsers inserts count demo users through the service, so passwords are
// hashed exactly like API-created users.
func seedUsers(ctx context.Context, users UserCreator, count int) (int, error) {
	for i := 0; i < count; i++ {
		if _, err := users.Create(ctx, demoUser(i)); err != nil {
			return i, fmt.Errorf("seeding user %d: %w", i+1, err)
		}
	}
	return count, nil
}

func seedCommand(c *cli.Context) error {
	count := c.Int("count")
	if count < 1 {
		return fmt.Errorf("--count must be positive, got %d", count)
	}

	cfg, logger, store, err := setup(c)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := server.New(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	created, err := seedUsers(c.Context, srv.Users(), count)
	logger.Info("seed finished", slog.Int("created", created))
	return err
}
