package platform

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kellydunn/go-opc"
	"go.bug.st/serial"
	c "lautenbacher.net/piezoleds/config"
	"lautenbacher.net/piezoleds/glow"
)

type opcSender interface {
	Send(m *opc.Message) error
}

// BridgePlatform takes the piezo readings from a microcontroller that
// prints one decimal value per line on a serial port, and sends the
// frames to an Open Pixel Control server such as a Fadecandy.
type BridgePlatform struct {
	*AbstractPlatform
	port    io.ReadCloser
	sender  opcSender
	message *opc.Message
	cancel  context.CancelFunc
}

func NewBridgePlatform(conf *c.Config) *BridgePlatform {
	return &BridgePlatform{
		AbstractPlatform: newAbstractPlatform(conf),
	}
}

func (s *BridgePlatform) Start() error {
	bridge := s.config.Hardware.Bridge

	mode := &serial.Mode{
		BaudRate: bridge.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(bridge.SerialPort, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", bridge.SerialPort, err)
	}

	client := opc.NewClient()
	if err := client.Connect("tcp", bridge.OPCServer); err != nil {
		port.Close()
		return fmt.Errorf("failed to connect to OPC server %s: %w", bridge.OPCServer, err)
	}
	slog.Info("Bridge platform connected", "serial", bridge.SerialPort, "baud", bridge.BaudRate,
		"opc", bridge.OPCServer, "channel", bridge.OPCChannel)

	s.setup(port, client)
	close(s.readyChan)
	return nil
}

func (s *BridgePlatform) setup(port io.ReadCloser, sender opcSender) {
	s.port = port
	s.sender = sender
	s.message = newOPCMessage(s.config.Hardware.Bridge.OPCChannel, s.config.Glow.LedsTotal)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.monitor(ctx, port); err != nil {
			slog.Error("Serial sensor stopped", "error", err)
		}
	}()
}

func newOPCMessage(channel uint8, ledsTotal int) *opc.Message {
	m := opc.NewMessage(channel)
	m.SetLength(uint16(ledsTotal * 3))
	return m
}

func (s *BridgePlatform) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	// closing the port unblocks the scanner
	if s.port != nil {
		if err := s.port.Close(); err != nil {
			slog.Error("Error closing serial port", "error", err)
		}
	}
	s.stopWorkers()
}

func (s *BridgePlatform) SetPixel(index int, led glow.Led) {
	if index >= 0 && index < s.config.Glow.LedsTotal {
		s.message.SetPixelColor(index, led.Red, led.Green, led.Blue)
	}
}

func (s *BridgePlatform) Show() error {
	if s.inShutdown() {
		return nil
	}
	return s.sender.Send(s.message)
}

// monitor reads sensor lines until r is exhausted or ctx is done.
func (s *BridgePlatform) monitor(ctx context.Context, r io.Reader) error {
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		value, err := strconv.Atoi(line)
		if err != nil {
			slog.Warn("Ignoring unparsable sensor line", "line", line, "error", err)
			continue
		}
		s.recordReading(value)
	}
	if ctx.Err() != nil {
		return nil
	}
	return scan.Err()
}
