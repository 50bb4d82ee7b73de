package adapter

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// statusReadTimeout bounds blocking reads so status queries against a silent
// device return instead of hanging the session.
const statusReadTimeout = 500 * time.Millisecond

// Serial is a Device over a serial port (8N1), the usual link for embedded
// thermal print heads.
type Serial struct {
	portName string
	baud     int
	port     serial.Port
	isOpen   bool
	mu       sync.Mutex
}

// NewSerial creates a serial device for the given port path and baud rate.
// The port is not opened until Open is called.
func NewSerial(portName string, baud int) *Serial {
	return &Serial{
		portName: portName,
		baud:     baud,
	}
}

// ListPorts enumerates candidate serial port paths on this host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// Open opens the serial port.
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isOpen {
		return errors.New("device already open")
	}

	mode := &serial.Mode{
		BaudRate: s.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(s.portName, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.portName, err)
	}
	if err := port.SetReadTimeout(statusReadTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", s.portName, err)
	}

	s.port = port
	s.isOpen = true
	return nil
}

// Write sends data to the printer.
func (s *Serial) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isOpen {
		return 0, errors.New("device not open")
	}
	n, err := s.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Read reads data from the printer, subject to the read timeout.
func (s *Serial) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isOpen {
		return 0, errors.New("device not open")
	}
	n, err := s.port.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}
	return n, nil
}

// Close closes the serial port. Closing an unopened device is a no-op.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isOpen {
		return nil
	}
	s.isOpen = false
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", s.portName, err)
	}
	return nil
}

// IsOpen returns whether the port is open.
func (s *Serial) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// Port returns the serial device path.
func (s *Serial) Port() string {
	return s.portName
}
