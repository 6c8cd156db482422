package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/tor1kk/sim800/gsm"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("mqtt-broker", "", "MQTT broker URL (empty disables MQTT)")
	flag.String("mqtt-client-id", "sms-gw-1", "MQTT client id")
	flag.String("mqtt-send-topic", "sms/send", "MQTT topic carrying outbound send requests")
	flag.String("mqtt-recv-topic", "sms/received", "MQTT topic for received messages")
	flag.Int("rate-per-min", 30, "Maximum outbound messages per minute")
	flag.Int("max-retries", 3, "Maximum send retries per message")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	gateway := NewGateway(config, logger.With("component", "gateway"))

	modemConfig, err := gsm.NewConfigBuilder().
		WithDialer(gsm.SerialDialer{
			PortName: config.SerialPort,
			Mode: &serial.Mode{
				BaudRate: config.BaudRate,
				DataBits: 8,
				Parity:   serial.NoParity,
				StopBits: serial.OneStopBit,
			},
		}).
		WithHandlers(gsm.Handlers{
			NewMessage: gateway.HandleNewMessage,
			Message:    gateway.HandleMessage,
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m, err := gsm.New(ctx, modemConfig)
	if err != nil {
		logger.Error("Failed to create modem", "error", err)
		os.Exit(1)
	}
	gateway.Modem = m

	if err := m.StartReceiving(); err != nil {
		logger.Error("Failed to start receiving", "error", err)
		os.Exit(1)
	}
	if err := m.Ping(ctx); err != nil {
		logger.Error("Modem not responding", "error", err)
		os.Exit(1)
	}
	if err := m.SetTextMode(ctx); err != nil {
		logger.Error("Failed to set SMS text mode", "error", err)
		os.Exit(1)
	}
	if err := m.EnableNotifications(); err != nil {
		logger.Error("Failed to enable message notifications", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting SMS gateway", "serial_port", config.SerialPort, "mqtt", config.MqttBroker != "")

	go func() {
		select {
		case err := <-m.ReadErrors():
			logger.Error("Modem transport read failed", "error", err)
		case <-ctx.Done():
		}
	}()

	go gateway.Run(ctx)

	if err := gateway.StartMQTT(ctx); err != nil {
		logger.Error("Failed to start MQTT", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:  logger.With("component", "server"),
			Modem:   m,
			Gateway: gateway,
		},
	}

	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
	}

	logger.Info("Closing modem connection")
	if err := m.Close(); err != nil {
		logger.Error("Failed to close modem", "error", err)
	}
}
