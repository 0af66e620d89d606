package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"i4.energy/across/modemchat/at"
	"i4.energy/across/modemchat/chat"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("sim-pin", "", "SIM card PIN code (if required)")
	flag.Int("receive-buffer-size", 256, "Largest line accepted from the modem, in bytes")
	flag.Int("notification-queue", 64, "Unsolicited lines buffered for /notifications pollers")
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

	dialer := chat.SerialDialer{
		PortName: config.SerialPort,
		Mode: &serial.Mode{
			BaudRate: config.BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
	transport, err := dialer.Dial(context.Background())
	if err != nil {
		logger.Error("Failed to open serial port", "error", err, "port", config.SerialPort)
		os.Exit(1)
	}

	notifications := make(chan string, config.NotificationQueue)
	engineConfig, err := chat.NewConfigBuilder().
		WithLogger(logger.With("component", "chat")).
		WithDelimiter(at.CRLF).
		WithReceiveBufferSize(config.ReceiveBufferSize).
		WithFilterBytes("\x00").
		WithUnsolicited(at.Notifications(func(_ *chat.Engine, args []string) {
			select {
			case notifications <- args[0]:
			default:
				// Drop when no one is polling.
			}
		})).
		Build()
	if err != nil {
		logger.Error("Failed to create engine config", "error", err)
		os.Exit(1)
	}

	engine, err := chat.New(engineConfig)
	if err != nil {
		logger.Error("Failed to create engine", "error", err)
		os.Exit(1)
	}
	if err := engine.Attach(transport); err != nil {
		logger.Error("Failed to attach transport", "error", err)
		os.Exit(1)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := initModem(initCtx, engine, config.SimPIN); err != nil {
		cancel()
		logger.Error("Failed to initialize modem", "error", err)
		os.Exit(1)
	}
	cancel()

	logger.Info("Starting modem chat gateway", "port", config.SerialPort)

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:        logger.With("component", "server"),
			Engine:        engine,
			Notifications: notifications,
		},
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	logger.Info("Closing engine")
	if err := engine.Close(); err != nil {
		logger.Error("Failed to close engine", "error", err)
	}
	if err := transport.Close(); err != nil {
		logger.Error("Failed to close transport", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}

// initModem runs the wake-up sequence and, when a PIN is configured, the SIM
// unlock command.
func initModem(ctx context.Context, engine *chat.Engine, simPIN string) error {
	result, err := engine.Run(ctx, at.InitScript(nil))
	if err != nil {
		return fmt.Errorf("init script: %w", err)
	}
	if result != chat.ResultSuccess {
		return fmt.Errorf("init script finished with %s", result)
	}

	if simPIN != "" {
		cmd := fmt.Sprintf(`AT+CPIN="%s"`, simPIN)
		result, err := engine.Run(ctx, at.Command(cmd, 10*time.Second, nil))
		if err != nil {
			return fmt.Errorf("enter SIM PIN: %w", err)
		}
		if result != chat.ResultSuccess {
			return fmt.Errorf("enter SIM PIN finished with %s", result)
		}
	}

	return nil
}
