package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/servis/recharge-bot/internal/config"
	"github.com/servis/recharge-bot/internal/pkg/database"
	"github.com/servis/recharge-bot/internal/pkg/jwt"
)

// opstoken mints a bearer token for the ledger API and, with -inspect, prints
// a summary of the ledger so the operator can check the token works against
// the expected database.
func main() {
	operator := flag.String("operator", "", "operator handle recorded in the token")
	role := flag.String("role", jwt.RoleStaff, "token role: staff or admin")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	inspect := flag.Bool("inspect", false, "print ledger status counts")
	flag.Parse()

	cfg := config.Load()

	if *operator == "" {
		fmt.Fprintln(os.Stderr, "-operator is required")
		os.Exit(2)
	}
	if *role != jwt.RoleStaff && *role != jwt.RoleAdmin {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}
	if cfg.OpsJWTSecret == "" {
		fmt.Fprintln(os.Stderr, "OPS_JWT_SECRET is not set")
		os.Exit(1)
	}

	if *inspect {
		if err := printLedgerSummary(cfg.DatabaseURL); err != nil {
			fmt.Fprintf(os.Stderr, "inspect failed: %v\n", err)
			os.Exit(1)
		}
	}

	token, err := jwt.NewService(cfg.OpsJWTSecret, *ttl).GenerateAccessToken(*operator, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func printLedgerSummary(databaseURL string) error {
	db, err := database.NewPostgres(databaseURL)
	if err != nil {
		return err
	}
	defer database.ClosePostgres(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := db.SelectContext(ctx, &rows, `SELECT status, count(*) AS count FROM transactions GROUP BY status ORDER BY status`); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "--- transactions by status ---")
	for _, r := range rows {
		fmt.Fprintf(os.Stderr, "%-16s %d\n", r.Status, r.Count)
	}
	fmt.Fprintln(os.Stderr, "------------------------------")
	return nil
}
