// expense-migrate applies the embedded ledger schema to Postgres.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/MrEthical07/goExpense/internal/config"
	"github.com/MrEthical07/goExpense/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	configPath := flag.String("config", "", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := migrate.Run(cfg.Postgres.DSN, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("migrations %s: done\n", *direction)
}
