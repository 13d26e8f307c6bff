// Command feeder-monitor polls CatLink smart feeders and publishes detected
// eating events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/pawsense/feeder-monitor/internal/cloud"
	"github.com/pawsense/feeder-monitor/internal/config"
	"github.com/pawsense/feeder-monitor/internal/device"
	"github.com/pawsense/feeder-monitor/internal/mqtt"
	"github.com/pawsense/feeder-monitor/internal/recorder"
	"github.com/pawsense/feeder-monitor/internal/status"
	"github.com/pawsense/feeder-monitor/internal/store"
	"github.com/pawsense/feeder-monitor/internal/web"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "configs/config.yaml", "Path to YAML config file")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config)")
	pollSeconds := flag.Int("poll", 0, "Poll interval in seconds (overrides config)")
	printDevices := flag.Bool("print-devices", false, "Print cloud device list and exit")

	flag.Parse()

	if v := os.Getenv("CONFIG_PATH"); v != "" && *cfgPath == "configs/config.yaml" {
		*cfgPath = v
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *pollSeconds != 0 {
		cfg.Poll.IntervalSeconds = *pollSeconds
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	if err := run(cfg, *printDevices); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
}

func run(cfg *config.Config, printDevices bool) error {
	source := cloud.NewClient(cfg.Cloud.BaseURL, cfg.Cloud.Token)

	if printDevices {
		devices, err := source.FetchDevices(context.Background())
		if err != nil {
			return fmt.Errorf("fetch devices: %w", err)
		}
		for _, d := range devices {
			fmt.Printf("%s\t%s\t%s\n", d.ID, d.Type, d.Name)
		}
		return nil
	}

	// With no devices configured, monitor everything the account can see.
	if len(cfg.Devices) == 0 {
		devices, err := source.FetchDevices(context.Background())
		if err != nil {
			return fmt.Errorf("discover devices: %w", err)
		}
		for _, d := range devices {
			cfg.Devices = append(cfg.Devices, config.Device{ID: d.ID, Name: d.Name})
		}
		log.Printf("[INFO] discovered %d devices from cloud", len(cfg.Devices))
	}
	if len(cfg.Devices) == 0 {
		return fmt.Errorf("no devices to monitor")
	}

	st, err := store.New(cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	now := time.Now()
	feeders := make([]*device.Feeder, 0, len(cfg.Devices))
	for _, dev := range cfg.Devices {
		name := dev.Name
		if name == "" {
			name = dev.ID
		}
		f := device.NewFeeder(dev.ID, name, cfg.DetectionFor(dev), st, rec)
		if err := f.LoadHistory(now); err != nil {
			log.Printf("[WARN] load history for %s: %v", dev.ID, err)
		}
		feeders = append(feeders, f)
	}

	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	for _, f := range feeders {
		msgs, err := mqtt.DiscoveryMessages(f.ID, f.Name)
		if err != nil {
			return fmt.Errorf("build discovery for %s: %w", f.ID, err)
		}
		if err := publisher.PublishDiscovery(msgs); err != nil {
			log.Printf("[WARN] publish discovery for %s: %v", f.ID, err)
		}
	}

	tracker := status.NewTracker(now, status.Config{
		PollSeconds:  cfg.Poll.IntervalSeconds,
		Broker:       cfg.MQTT.Broker,
		HTTPAddr:     cfg.HTTP.Addr,
		CloudBaseURL: cfg.Cloud.BaseURL,
		StoreDir:     cfg.Store.Dir,
		DatabasePath: cfg.Database.SQLitePath,
	})

	// Commands run through the loop so feeders stay single-goroutine.
	commandCh := make(chan deviceCommand, 8)
	if err := publisher.SubscribeCommands(func(deviceID string, cmd mqtt.Command) {
		select {
		case commandCh <- deviceCommand{deviceID: deviceID, cmd: cmd}:
		default:
			log.Printf("[WARN] command queue full, dropping command for %s", deviceID)
		}
	}); err != nil {
		log.Printf("[WARN] subscribe to command topics: %v", err)
	}

	startup := mqtt.SystemEvent{Timestamp: now, Event: "STARTUP", Retained: true}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Printf("[WARN] publish startup event: %v", err)
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, rec)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[ERROR] http server: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("[INFO] http status server listening on %s", cfg.HTTP.Addr)
	}

	// Day rollover runs through the loop so feeders stay single-goroutine.
	rolloverCh := make(chan time.Time, 1)
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Schedule.RolloverCron, func() {
		select {
		case rolloverCh <- time.Now():
		default:
		}
	}); err != nil {
		return fmt.Errorf("register rollover cron: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	log.Printf("[INFO] started: devices=%d poll=%ds broker=%s", len(feeders), cfg.Poll.IntervalSeconds, cfg.MQTT.Broker)

	ticker := time.NewTicker(time.Duration(cfg.Poll.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(source, feeders, publisher, publisher, tracker, time.Now, ticker.C, rolloverCh, commandCh, sigCh)
}

// deviceCommand is a control request queued from the MQTT command topic.
type deviceCommand struct {
	deviceID string
	cmd      mqtt.Command
}

func runLoop(source cloud.Source, feeders []*device.Feeder, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, tick, rollover <-chan time.Time, commands <-chan deviceCommand, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("[INFO] received %v, shutting down", s)
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName(s),
				Retained:  true,
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("[WARN] publish shutdown event: %v", err)
			}
			return nil

		case t := <-rollover:
			for _, f := range feeders {
				f.Rollover(t)
			}
			log.Printf("[INFO] day rollover completed for %d feeders", len(feeders))

		case c := <-commands:
			applyCommand(source, feeders, c)

		case <-tick:
			t := now()
			for _, f := range feeders {
				detail, err := source.FetchFeederDetail(context.Background(), f.ID)
				if err != nil {
					log.Printf("[WARN] fetch detail for %s: %v", f.ID, err)
					continue
				}
				if logs, err := source.FetchFeedLogs(context.Background(), f.ID); err == nil {
					f.SetLogs(logs)
				}

				event := f.ProcessDetail(detail, t)
				if event != nil {
					if err := publisher.PublishEvent(f.ID, *event); err != nil {
						log.Printf("[WARN] publish event for %s: %v", f.ID, err)
					}
				}

				if err := publisher.PublishState(f.ID, deviceState(f, t)); err != nil {
					log.Printf("[WARN] publish state for %s: %v", f.ID, err)
				}
				tracker.UpdateDevice(deviceSnapshot(f, t))
			}

			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			tracker.IncrementPolls()
		}
	}
}

// applyCommand forwards a queued MQTT command to the cloud API. Portion
// counts above the device's reported maximum are rejected.
func applyCommand(source cloud.Source, feeders []*device.Feeder, c deviceCommand) {
	var feeder *device.Feeder
	for _, f := range feeders {
		if f.ID == c.deviceID {
			feeder = f
			break
		}
	}
	if feeder == nil {
		log.Printf("[WARN] command for unknown device %s", c.deviceID)
		return
	}

	if c.cmd.FoodOutCount > 0 {
		if max := feeder.Detail().MaxFoodOutNumber; max > 0 && c.cmd.FoodOutCount > max {
			log.Printf("[WARN] %s: food_out_count %d exceeds device maximum %d", feeder.ID, c.cmd.FoodOutCount, max)
			return
		}
	}

	var err error
	if c.cmd.Mode != "" {
		err = source.SwitchMode(context.Background(), feeder.ID, c.cmd.Mode, c.cmd.FoodOutCount)
	} else {
		err = source.SetFoodOutCount(context.Background(), feeder.ID, c.cmd.FoodOutCount)
	}
	if err != nil {
		log.Printf("[WARN] apply command for %s: %v", feeder.ID, err)
		return
	}
	log.Printf("[INFO] %s: applied command mode=%q food_out_count=%d", feeder.ID, c.cmd.Mode, c.cmd.FoodOutCount)
}

func deviceState(f *device.Feeder, now time.Time) mqtt.DeviceState {
	detail := f.Detail()
	return mqtt.DeviceState{
		Timestamp:       now,
		Status:          f.EatingStatus(now),
		BowlWeight:      detail.BowlWeight(),
		StableWeight:    f.StableWeight(),
		DailyIntake:     f.DailyIntake(now),
		MealCount:       len(f.TodayEvents()),
		AvgMealSize:     f.AverageMealSize(),
		CurrentAmount:   f.CurrentAmount(),
		CurrentDuration: f.CurrentDuration(now),
		ReportedIntake:  detail.ReportedIntake(),
		DesiccantDays:   detail.DesiccantCountdown,
		LastLog:         f.LastLog(),
		Online:          detail.Online,
		Error:           detail.Error(),
	}
}

func deviceSnapshot(f *device.Feeder, now time.Time) status.DeviceSnapshot {
	detail := f.Detail()
	snap := status.DeviceSnapshot{
		ID:              f.ID,
		Name:            f.Name,
		Status:          f.EatingStatus(now),
		MachineState:    f.MachineState(),
		BowlWeight:      detail.BowlWeight(),
		StableWeight:    f.StableWeight(),
		DailyIntake:     f.DailyIntake(now),
		MealCount:       len(f.TodayEvents()),
		AvgMealSize:     f.AverageMealSize(),
		CurrentAmount:   f.CurrentAmount(),
		CurrentDuration: f.CurrentDuration(now),
		LastMealAmount:  f.LastMealAmount(),
		ReportedIntake:  detail.ReportedIntake(),
		DesiccantDays:   detail.DesiccantCountdown,
		FoodRemaining:   detail.TotalBalanceDesc,
		LastLog:         f.LastLog(),
		Firmware:        detail.FirmwareVersion,
		WindowSamples:   f.SampleCount(),
		Online:          detail.Online,
		Error:           detail.Error(),
		LastSeen:        now,
	}
	if t, ok := f.LastMealTime(); ok {
		snap.LastMealTime = t
	}
	return snap
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
