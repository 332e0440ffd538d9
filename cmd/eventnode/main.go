package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"eventnode-go/bus"
	"eventnode-go/services/config"
	"eventnode-go/services/counter"
	"eventnode-go/services/dutycycle"
	"eventnode-go/services/hal/devices/gpio_dout"
	"eventnode-go/services/hal/devices/pwm_out"
	"eventnode-go/services/hal/gpioirq"
	"eventnode-go/services/hal/halcore"
	"eventnode-go/services/hal/sim"
	"eventnode-go/services/heartbeat"
	"eventnode-go/services/link"
	"eventnode-go/services/netrx"
	"eventnode-go/types"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("EVENTNODE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("EVENTNODE_CONFIG"))
	if err != nil {
		logger.Error("config:load-failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	if y, err := config.Encode(cfg.Redacted()); err == nil {
		logger.Info("config:effective", slog.String("device", cfg.Device), slog.String("yaml", string(y)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.NewBus(cfg.Bus.QueueLen)
	config.NewService(cfg, logger).Start(ctx, b.NewConnection("config"))

	var wg sync.WaitGroup
	spawn := func(f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}

	spawn(func(ctx context.Context) { monitor(ctx, b.NewConnection("monitor"), logger) })

	var board interface {
		halcore.PinFactory
		halcore.PWMFactory
	} = sim.NewBoard(48)
	halConn := b.NewConnection("hal")

	// Heartbeat blinker.
	if pin, err := board.Pin(cfg.Heartbeat.Pin); err != nil {
		logger.Error("heartbeat:pin", slog.Int("pin", cfg.Heartbeat.Pin), slog.String("err", err.Error()))
	} else {
		led := gpio_dout.New("heartbeat", gpio_dout.Params{Pin: cfg.Heartbeat.Pin, ActiveLow: cfg.Heartbeat.ActiveLow},
			pin, gpio_dout.WithLogger(logger), gpio_dout.WithBus(halConn))
		_ = led.Init() // failure is logged; the service keeps its schedule without writing
		hb := heartbeat.New(led, config.Ms(cfg.Heartbeat.PeriodMs),
			heartbeat.WithLogger(logger), heartbeat.WithBus(b.NewConnection("heartbeat")))
		spawn(hb.Run)
	}

	// Button interrupt toggling an output.
	if err := startButton(cfg.Button, board, halConn, logger, spawn); err != nil {
		logger.Error("button:setup-failed", slog.String("err", err.Error()))
	}

	// Duty-cycle controller.
	if hw, err := board.PWM(cfg.PWM.Channel, cfg.PWM.Pin); err != nil {
		logger.Error("duty:pwm", slog.Int("channel", cfg.PWM.Channel), slog.String("err", err.Error()))
	} else {
		dev := pwm_out.New("lamp", pwm_out.Params{
			Channel: cfg.PWM.Channel, Pin: cfg.PWM.Pin,
			FreqHz: cfg.PWM.FreqHz, ResolutionBits: cfg.PWM.ResolutionBits,
		}, hw, pwm_out.WithLogger(logger), pwm_out.WithBus(halConn))
		_ = dev.Init()
		ctl, err := dutycycle.New(dev, dutycycle.Pattern{
			Duty: cfg.PWM.Duty, On: config.Ms(cfg.PWM.OnMs), Off: config.Ms(cfg.PWM.OffMs),
		}, dutycycle.WithLogger(logger))
		if err != nil {
			logger.Error("duty:pattern", slog.String("err", err.Error()))
		} else {
			spawn(ctl.Run)
		}
	}

	// Counter producer/consumer.
	q := counter.NewQueue(cfg.Counter.Capacity)
	spawn(counter.NewProducer(q, config.Ms(cfg.Counter.PeriodMs), logger).Run)
	spawn(counter.NewConsumer(q, b.NewConnection("counter"), logger).Run)

	// Link, reconnect supervisor and datagram service.
	sl := link.NewSimLink(config.Ms(cfg.Link.ConnectDelayMs))
	tracker := link.NewTracker(sl, link.WithLogger(logger), link.WithBus(b.NewConnection("link")))
	sl.Attach(tracker.Handle)
	logger.Info("link:starting", slog.String("ssid", cfg.Link.SSID))
	sl.Start()
	spawn(link.NewSupervisor(tracker, config.Ms(cfg.Link.ReconnectMs), logger).Run)

	svc := netrx.New(netrx.Config{
		Port:          cfg.Net.Port,
		RecvTimeout:   config.Ms(cfg.Net.RecvTimeoutMs),
		MaxDatagram:   cfg.Net.MaxDatagram,
		ConnectedPoll: config.Ms(cfg.Net.ConnectedPollMs),
		RetryBackoff:  config.Ms(cfg.Net.RetryBackoffMs),
	}, tracker, netrx.UDPTransport{Host: cfg.Net.Host}, b.NewConnection("netrx"), logger)
	spawn(func(ctx context.Context) { _ = svc.Run(ctx) })

	<-ctx.Done()
	logger.Info("main:shutdown")
	wg.Wait()
}

func startButton(c config.ButtonConfig, board halcore.PinFactory, conn *bus.Connection,
	logger *slog.Logger, spawn func(func(context.Context))) error {
	ledPin, err := board.Pin(c.LEDPin)
	if err != nil {
		return err
	}
	led := gpio_dout.New("button-led", gpio_dout.Params{Pin: c.LEDPin},
		ledPin, gpio_dout.WithLogger(logger), gpio_dout.WithBus(conn))
	_ = led.Init()

	btn, err := board.Pin(c.Pin)
	if err != nil {
		return err
	}
	w := gpioirq.New(led, gpioirq.WithLogger(logger))
	unregister, err := w.Register(btn, halcore.ParseEdge(c.Edge))
	if err != nil {
		return err
	}
	spawn(func(ctx context.Context) {
		defer unregister()
		w.Run(ctx)
	})
	return nil
}

// monitor logs received datagrams and counter values, and every other bus
// message at debug level.
func monitor(ctx context.Context, conn *bus.Connection, logger *slog.Logger) {
	sub := conn.Subscribe(bus.T("#"))
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-sub.Channel():
			if !ok {
				return
			}
			switch p := m.Payload.(type) {
			case types.Datagram:
				logger.Info("app:datagram", slog.String("from", p.From), slog.String("text", p.Text))
			case types.CounterValue:
				logger.Debug("app:counter", slog.Int("val", p.Value))
			default:
				logger.Debug("bus:msg", slog.String("topic", m.Topic.String()), slog.Bool("retained", m.Retained))
			}
		}
	}
}
