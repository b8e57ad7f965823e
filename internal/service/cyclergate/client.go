package cyclergate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"CellScope/internal/domain/models"
	drepo "CellScope/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a CycleStream backed by the cycler gateway
// WebSocket. The gateway emits one cycle-complete frame per finished
// charge/discharge cycle.
type Client struct {
	apiKey         string
	websocketURL   string
	experiments    []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new gateway CycleStream.
func New(apiKey, websocketURL string, experiments []string, reconnectDelay, pingInterval time.Duration) drepo.CycleStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		experiments:    experiments,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("cyclergate connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("cyclergate: connected")
	return nil
}

// Subscribe subscribes to the configured experiments.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("cyclergate not connected")
	}
	for _, e := range c.experiments {
		msg := map[string]string{"type": "subscribe", "experiment": e}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", e, err)
		}
		log.Printf("cyclergate: subscribed %s", e)
	}
	return nil
}

// gwCycle is one cycle-complete payload from the gateway.
type gwCycle struct {
	Experiment string   `json:"experiment"`
	Cell       string   `json:"cell"`
	N          int      `json:"n"`
	QChg       *float64 `json:"q_chg"`
	QDis       *float64 `json:"q_dis"`
	SQChg      *float64 `json:"sq_chg"`
	SQDis      *float64 `json:"sq_dis"`
	Eff        *float64 `json:"eff"`
}

type gwMessage struct {
	Type string    `json:"type"`
	Data []gwCycle `json:"data"`
}

// Read streams cycle updates and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.CycleUpdate, <-chan error) {
	updates := make(chan *models.CycleUpdate, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(updates)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("cyclergate conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("cyclergate read: %w", err)
					return
				}
				var m gwMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-cycle frames
					continue
				}
				if m.Type != "cycle" {
					continue
				}
				for _, d := range m.Data {
					u := &models.CycleUpdate{
						ExperimentID: d.Experiment,
						CellID:       d.Cell,
						Record: models.CycleRecord{
							CycleNumber:               d.N,
							ChargeCapacity:            d.QChg,
							DischargeCapacity:         d.QDis,
							SpecificChargeCapacity:    d.SQChg,
							SpecificDischargeCapacity: d.SQDis,
							CoulombicEfficiency:       d.Eff,
						},
					}
					select {
					case updates <- u:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return updates, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
