package main

import (
	"flag"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(WithDefaults())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.BindAddress != "0.0.0.0:8080" {
		t.Errorf("bind address = %q, want 0.0.0.0:8080", config.BindAddress)
	}
	if config.SerialPort != "/dev/ttyUSB0" {
		t.Errorf("serial port = %q, want /dev/ttyUSB0", config.SerialPort)
	}
	if config.BaudRate != 115200 {
		t.Errorf("baud rate = %d, want 115200", config.BaudRate)
	}
	if config.ReceiveBufferSize != 256 {
		t.Errorf("receive buffer size = %d, want 256", config.ReceiveBufferSize)
	}
	if config.NotificationQueue != 64 {
		t.Errorf("notification queue = %d, want 64", config.NotificationQueue)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERIAL_PORT", "/dev/ttyACM3")
	t.Setenv("RECEIVE_BUFFER_SIZE", "1024")
	t.Setenv("NOTIFICATION_QUEUE", "8")

	config, err := LoadConfig(WithDefaults(), WithEnv())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.SerialPort != "/dev/ttyACM3" {
		t.Errorf("serial port = %q, want /dev/ttyACM3", config.SerialPort)
	}
	if config.ReceiveBufferSize != 1024 {
		t.Errorf("receive buffer size = %d, want 1024", config.ReceiveBufferSize)
	}
	if config.NotificationQueue != 8 {
		t.Errorf("notification queue = %d, want 8", config.NotificationQueue)
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	fSet := flag.NewFlagSet("test", flag.ContinueOnError)
	fSet.String("bind-address", "0.0.0.0:8080", "")
	fSet.Int("receive-buffer-size", 256, "")
	fSet.Int("notification-queue", 64, "")

	err := fSet.Parse([]string{
		"-bind-address", "127.0.0.1:9090",
		"-receive-buffer-size", "512",
		"-notification-queue", "16",
	})
	if err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	config, err := LoadConfig(WithDefaults(), WithFlags(fSet))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.BindAddress != "127.0.0.1:9090" {
		t.Errorf("bind address = %q, want 127.0.0.1:9090", config.BindAddress)
	}
	if config.ReceiveBufferSize != 512 {
		t.Errorf("receive buffer size = %d, want 512", config.ReceiveBufferSize)
	}
	if config.NotificationQueue != 16 {
		t.Errorf("notification queue = %d, want 16", config.NotificationQueue)
	}
}

func TestLoadConfigRejectsNonPositiveSizes(t *testing.T) {
	t.Setenv("RECEIVE_BUFFER_SIZE", "0")
	if _, err := LoadConfig(WithDefaults(), WithEnv()); err == nil {
		t.Error("expected error for zero receive buffer size")
	}

	t.Setenv("RECEIVE_BUFFER_SIZE", "256")
	t.Setenv("NOTIFICATION_QUEUE", "-1")
	if _, err := LoadConfig(WithDefaults(), WithEnv()); err == nil {
		t.Error("expected error for negative notification queue depth")
	}
}
