// expense-audit-tail consumes the audit topic and prints one JSON event per line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	goExpense "github.com/MrEthical07/goExpense"
	"github.com/MrEthical07/goExpense/internal/config"
	"github.com/MrEthical07/goExpense/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config")
	group := flag.String("group", "expense-audit-tail", "consumer group id")
	failuresOnly := flag.Bool("failures", false, "print only unsuccessful events")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if len(cfg.Audit.KafkaBrokers) == 0 {
		fmt.Fprintln(os.Stderr, "audit.kafka_brokers (AUDIT_KAFKA_BROKERS) is required")
		os.Exit(1)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Audit.KafkaBrokers,
		Topic:          cfg.Audit.KafkaTopic,
		GroupID:        *group,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.Warn("audit read failed", "err", err)
			continue
		}

		var event goExpense.AuditEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Warn("audit decode failed", "offset", msg.Offset, "partition", msg.Partition, "err", err)
			continue
		}
		if *failuresOnly && event.Success {
			continue
		}
		if err := enc.Encode(event); err != nil {
			log.Error("write failed", "err", err)
			return
		}
	}
}
