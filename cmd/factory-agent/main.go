package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	factorymonitor "github.com/ayoubhammamii/RealTime-Factory-Monitor"
	"github.com/ayoubhammamii/RealTime-Factory-Monitor/internal/adapters/journal"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "deliveries":
		err = deliveriesCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("factory-agent %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to agent configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := factorymonitor.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := factorymonitor.NewRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := factorymonitor.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"factory_good_count":            0,
		"factory_reject_count":          0,
		"factory_acks_total":            0,
		"factory_delivery_failed_total": 0,
		"factory_queue_length":          0,
		"factory_connected":             0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] good=%.0f reject=%.0f acked=%.0f failed=%.0f queue=%.0f connected=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["factory_good_count"],
		targets["factory_reject_count"],
		targets["factory_acks_total"],
		targets["factory_delivery_failed_total"],
		targets["factory_queue_length"],
		targets["factory_connected"],
	)
	return nil
}

func deliveriesCommand(args []string) error {
	fs := flag.NewFlagSet("deliveries", flag.ExitOnError)
	path := fs.String("journal", "./data/journal.db", "Path to the delivery journal database")
	n := fs.Int("n", 20, "Number of outcomes to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	j, err := journal.Open(ctx, *path)
	if err != nil {
		return err
	}
	defer j.Close()

	outs, err := j.Recent(*n)
	if err != nil {
		return err
	}
	if len(outs) == 0 {
		fmt.Println("journal is empty")
		return nil
	}

	fmt.Printf("%-8s %-8s %-9s %-25s %s\n", "SEQ", "STATE", "ATTEMPTS", "SAMPLED", "LAST SENT")
	for _, out := range outs {
		fmt.Printf("%-8d %-8s %-9d %-25s %s\n",
			out.Seq, out.State, out.Attempts,
			out.SampledAt.Format(time.RFC3339),
			out.LastSentAt.Format(time.RFC3339))
	}
	return nil
}

func printUsage() {
	fmt.Printf(`Factory Monitor Agent

Usage:
  factory-agent <command> [flags]

Commands:
  run         Start the agent using the provided config
  validate    Load and validate a config file without starting the agent
  stats       Poll the Prometheus metrics endpoint and print live counters
  deliveries  Show recent delivery outcomes from the local journal

Examples:
  factory-agent run -config ./data/config.yaml
  factory-agent validate -config ./data/config.yaml
  factory-agent stats -url http://localhost:9100/metrics -interval 1s
  factory-agent deliveries -journal ./data/journal.db -n 50
`)
}
