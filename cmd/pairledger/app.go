package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pairledger/internal/cli"
	"pairledger/internal/core"
	"pairledger/internal/services"
	"pairledger/internal/storage"
)

var timeNow = time.Now

// app holds the services one command invocation works with.
type app struct {
	repo      *storage.SQLiteRepository
	publisher services.EventPublisher
	entries   *services.EntryService
	ledger    *services.LedgerService
}

func openApp() (*app, error) {
	if appConfig == nil {
		return nil, errors.New("configuration not loaded")
	}
	repo, err := cli.InitSQLite(appLogger, appConfig.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The entry service owns the publisher and closes it with the repository.
	publisher, _ := cli.InitPublisher(appLogger, appConfig)
	return &app{
		repo:      repo,
		publisher: publisher,
		entries:   services.NewEntryService(repo, publisher),
		ledger:    services.NewLedgerService(repo),
	}, nil
}

func (a *app) Close() {
	if err := a.entries.Close(); err != nil {
		appLogger.Warn("Failed to close", "error", err)
	}
}

func currentUser() (string, error) {
	user := strings.TrimSpace(viper.GetString("user"))
	if user == "" {
		return "", errors.New("no user: pass --user or set PAIRLEDGER_USER")
	}
	return user, nil
}

// household resolves the acting user's household and role.
func (a *app) household(ctx context.Context) (core.Household, core.Member, error) {
	user, err := currentUser()
	if err != nil {
		return core.Household{}, "", err
	}
	h, err := a.repo.FindHouseholdByMember(ctx, user)
	if errors.Is(err, core.ErrNotFound) {
		return core.Household{}, "", fmt.Errorf("user %s has no household: run 'pairledger household create' or 'household join'", user)
	}
	if err != nil {
		return core.Household{}, "", err
	}
	role, err := h.Role(user)
	if err != nil {
		return core.Household{}, "", err
	}
	return h, role, nil
}

// withHousehold opens the app, resolves the household and runs fn.
func withHousehold(cmd *cobra.Command, fn func(ctx context.Context, a *app, h core.Household, me core.Member) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	h, me, err := a.household(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, a, h, me)
}

// memberFlag parses an A/B flag value, defaulting to the acting member.
func memberFlag(value string, me core.Member) (core.Member, error) {
	if value == "" {
		return me, nil
	}
	return core.ParseMember(value)
}

// dateFlag parses YYYY-MM-DD, defaulting to today.
func dateFlag(value string) (core.Date, error) {
	if value == "" {
		return today(), nil
	}
	return core.ParseDate(value)
}

func today() core.Date {
	return core.DateOf(timeNow())
}

func amountFlag(value string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(value)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %q", err, value)
	}
	return core.Money{Cents: cents}, nil
}

// categoryByName maps a category name to its id within the household.
func categoryByName(ctx context.Context, a *app, householdID, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	categories, err := a.repo.ListCategories(ctx, householdID)
	if err != nil {
		return "", err
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("category %q: %w", name, core.ErrNotFound)
}
