// Embedding example: run the agent in simulation mode inside another Go
// program, receiving alerts over a channel instead of the log.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	factorymonitor "github.com/ayoubhammamii/RealTime-Factory-Monitor"
)

func main() {
	cfg := &factorymonitor.Config{}
	cfg.MachineID = "demo-01"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9500
	cfg.StateFile = "./data/demo_counters.json"
	cfg.Shifts = []factorymonitor.ShiftWindow{
		{Name: "Shift1", Start: "06:00:00", End: "14:00:00"},
		{Name: "Shift2", Start: "14:00:00", End: "22:00:00"},
		{Name: "Shift3", Start: "22:00:00", End: "06:00:00"},
	}
	cfg.Simulation.Enabled = true
	cfg.Simulation.StopProbability = 0.02
	cfg.StopGrace = 10 * time.Second

	alerts, alertCh, closeAlerts := factorymonitor.NewChannelAlerts(8)
	defer closeAlerts()

	go func() {
		for ev := range alertCh {
			fmt.Printf("ALERT %s: %s\n", ev.Kind, ev.Detail)
		}
	}()

	rt, err := factorymonitor.NewRuntime(cfg, factorymonitor.WithAlertSink(alerts))
	if err != nil {
		log.Fatalf("runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}
