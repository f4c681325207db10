package heartrate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"breathtrainer/internal/events"
	"breathtrainer/internal/safego"
)

const defaultRetryDelay = 5 * time.Second

// Monitor streams readings from a BLE heart rate strap. It scans for
// the first device advertising the heart rate service, subscribes to
// measurement notifications and reconnects whenever the link drops.
type Monitor struct {
	adapter    *bluetooth.Adapter
	logger     *log.Logger
	retryDelay time.Duration

	readings *events.Stream[int]

	resyncChan chan struct{}
	lostChan   chan struct{}

	mu            sync.Mutex
	device        *bluetooth.Device
	connectedAddr string

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewMonitor creates a Monitor on the given adapter. An optional retry
// delay overrides the reconnect backoff. Call Start to begin scanning.
func NewMonitor(adapter *bluetooth.Adapter, logger *log.Logger, retryDelay ...time.Duration) *Monitor {
	if adapter == nil {
		panic("HeartRate: adapter cannot be nil")
	}
	if logger == nil {
		panic("HeartRate: logger cannot be nil")
	}
	delay := defaultRetryDelay
	if len(retryDelay) > 0 {
		delay = retryDelay[0]
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		adapter:    adapter,
		logger:     logger,
		retryDelay: delay,
		readings:   events.NewStream[int](true),
		resyncChan: make(chan struct{}, 1),
		lostChan:   make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start enables the adapter and begins the scan/connect loop.
func (m *Monitor) Start() error {
	// Track disconnections so the loop can reconnect.
	m.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		addr := device.Address.String()
		m.mu.Lock()
		lost := m.connectedAddr != "" && addr == m.connectedAddr
		if lost {
			m.device = nil
			m.connectedAddr = ""
		}
		m.mu.Unlock()
		if lost {
			m.logger.Printf("HeartRate: device disconnected: %s", addr)
			select {
			case m.lostChan <- struct{}{}:
			default:
			}
		}
	})

	if err := m.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w", err)
	}

	m.wg.Add(1)
	safego.Go(m.logger, func() {
		defer m.wg.Done()
		m.runLoop()
	})
	return nil
}

// ListenToReadings registers a channel for bpm readings. The last
// reading is replayed to late subscribers.
func (m *Monitor) ListenToReadings(ch chan<- int) func() {
	return m.readings.Subscribe(ch)
}

// Resync drops the current link and resubscribes. Straps often stop
// notifying after the host slept through their connection interval.
func (m *Monitor) Resync() {
	select {
	case m.resyncChan <- struct{}{}:
	default:
	}
}

// Shutdown disconnects and stops the monitor. Safe to call multiple
// times.
func (m *Monitor) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.cancel()
		m.wg.Wait()
		m.logger.Printf("HeartRate: shutdown complete")
	})
}

func (m *Monitor) runLoop() {
	for {
		if m.ctx.Err() != nil {
			return
		}
		if err := m.connectAndSubscribe(); err != nil {
			if m.ctx.Err() != nil {
				return
			}
			m.logger.Printf("HeartRate: %v, retrying in %v", err, m.retryDelay)
			select {
			case <-m.ctx.Done():
				return
			case <-time.After(m.retryDelay):
			}
			continue
		}

		// A resync requested while we were connecting is already
		// served by the fresh subscription.
		select {
		case <-m.resyncChan:
		default:
		}

		select {
		case <-m.ctx.Done():
			m.disconnect()
			return
		case <-m.lostChan:
			m.logger.Printf("HeartRate: connection lost, rescanning")
		case <-m.resyncChan:
			m.logger.Printf("HeartRate: resubscribing after resync")
			m.disconnect()
		}
	}
}

func (m *Monitor) connectAndSubscribe() error {
	serviceUUID, err := bluetooth.ParseUUID(ServiceUUIDHeartRate)
	if err != nil {
		return fmt.Errorf("failed to parse heart rate service UUID: %w", err)
	}
	charUUID, err := bluetooth.ParseUUID(CharUUIDHeartRateMeasurement)
	if err != nil {
		return fmt.Errorf("failed to parse measurement characteristic UUID: %w", err)
	}

	result, found := m.scanForDevice(serviceUUID)
	if !found {
		return errors.New("scan stopped before a heart rate device was found")
	}

	name := result.LocalName()
	if name == "" {
		name = "Unknown"
	}
	addr := result.Address.String()
	m.logger.Printf("HeartRate: found device: %s (%s) [RSSI: %d]", name, addr, result.RSSI)

	device, err := m.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		_ = device.Disconnect()
		return fmt.Errorf("heart rate service not available on %s: %w", addr, err)
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		_ = device.Disconnect()
		return fmt.Errorf("measurement characteristic not available on %s: %w", addr, err)
	}

	err = chars[0].EnableNotifications(func(buf []byte) {
		bpm, parseErr := parseHeartRate(buf)
		if parseErr != nil {
			m.logger.Printf("HeartRate: parse error: %v (raw: %v)", parseErr, buf)
			return
		}
		m.readings.Publish(bpm)
	})
	if err != nil {
		_ = device.Disconnect()
		return fmt.Errorf("failed to enable notifications on %s: %w", addr, err)
	}

	m.mu.Lock()
	m.device = &device
	m.connectedAddr = addr
	m.mu.Unlock()

	m.logger.Printf("HeartRate: subscribed to %s (%s)", name, addr)
	return nil
}

// scanForDevice blocks until a device advertising the heart rate
// service appears or the monitor shuts down.
func (m *Monitor) scanForDevice(serviceUUID bluetooth.UUID) (bluetooth.ScanResult, bool) {
	// The adapter scan only returns once StopScan is called; this
	// goroutine unblocks it on shutdown.
	scanDone := make(chan struct{})
	m.wg.Add(1)
	safego.Go(m.logger, func() {
		defer m.wg.Done()
		select {
		case <-m.ctx.Done():
			_ = m.adapter.StopScan()
		case <-scanDone:
		}
	})
	defer close(scanDone)

	var found bluetooth.ScanResult
	var haveResult bool
	err := m.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		if haveResult {
			return
		}
		match := false
		for _, u := range result.ServiceUUIDs() {
			if u.String() == serviceUUID.String() {
				match = true
				break
			}
		}
		if !match {
			return
		}
		found = result
		haveResult = true
		if err := adapter.StopScan(); err != nil {
			m.logger.Printf("HeartRate: failed to stop scan: %v", err)
		}
	})
	if err != nil {
		m.logger.Printf("HeartRate: scan error: %v", err)
		return bluetooth.ScanResult{}, false
	}
	return found, haveResult
}

func (m *Monitor) disconnect() {
	m.mu.Lock()
	device := m.device
	m.device = nil
	m.connectedAddr = ""
	m.mu.Unlock()

	if device != nil {
		if err := device.Disconnect(); err != nil {
			m.logger.Printf("HeartRate: disconnect failed: %v", err)
		}
	}
}
