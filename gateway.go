package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/time/rate"

	"github.com/tor1kk/sim800/gsm"
)

// SmsRequest is one outbound message, accepted over HTTP or MQTT.
type SmsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"` // optional caller-supplied id
}

// Job is a queued send with its retry count.
type Job struct {
	Req      SmsRequest
	Attempts int
}

// ErrQueueFull is returned by Enqueue when the send queue has no room.
var ErrQueueFull = errors.New("send queue full")

// Gateway owns the outbound send queue and the inbound message flow. One
// worker drains the queue, paced by the rate limiter, so the modem only
// ever sees a single exchange at a time.
type Gateway struct {
	Logger *slog.Logger
	Modem  *gsm.Modem

	config  *Config
	queue   chan Job
	limiter *rate.Limiter
	client  mqtt.Client
}

func NewGateway(config *Config, logger *slog.Logger) *Gateway {
	perMin := config.RatePerMin
	if perMin <= 0 {
		perMin = 30
	}
	return &Gateway{
		Logger:  logger,
		config:  config,
		queue:   make(chan Job, 1024),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
	}
}

// Enqueue queues an outbound message and returns its id.
func (g *Gateway) Enqueue(req SmsRequest) (string, error) {
	if req.ID == "" {
		h := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%d", req.To, req.Message, time.Now().UnixNano())))
		req.ID = hex.EncodeToString(h[:8])
	}
	select {
	case g.queue <- Job{Req: req}:
		return req.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Run drains the send queue until the context is canceled.
func (g *Gateway) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-g.queue:
			if err := g.limiter.Wait(ctx); err != nil {
				return
			}
			if err := g.Modem.SendMessage(ctx, job.Req.To, job.Req.Message); err != nil {
				g.retry(ctx, job, err)
				continue
			}
			g.Logger.Info("Message sent", "id", job.Req.ID, "to", job.Req.To)
		}
	}
}

func (g *Gateway) retry(ctx context.Context, job Job, sendErr error) {
	if job.Attempts >= g.config.MaxRetries {
		g.Logger.Error("Send failed permanently", "id", job.Req.ID, "to", job.Req.To, "error", sendErr)
		return
	}
	job.Attempts++
	backoff := time.Duration(800+rand.Intn(600)) * time.Millisecond
	g.Logger.Warn("Send failed, retrying", "id", job.Req.ID, "attempt", job.Attempts, "backoff", backoff, "error", sendErr)

	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return
	}
	select {
	case g.queue <- job:
	default:
		g.Logger.Error("Send queue full, dropping retry", "id", job.Req.ID)
	}
}

// HandleNewMessage is the notification hook: a +CMTI arrived, so ask the
// modem for the stored message. The payload comes back through
// HandleMessage.
func (g *Gateway) HandleNewMessage(m *gsm.Modem, index int) {
	g.Logger.Info("New message notification", "index", index)
	if err := m.RequestMessage(index); err != nil {
		g.Logger.Error("Failed to request message", "index", index, "error", err)
	}
}

// HandleMessage delivers a completed inbound message: published to MQTT
// when a receive topic is configured, logged either way.
func (g *Gateway) HandleMessage(_ *gsm.Modem, msg gsm.Message) {
	g.Logger.Info("Message received", "from", msg.Sender, "length", len(msg.Body))

	if g.client == nil || g.config.MqttRecvTopic == "" {
		return
	}
	payload, err := json.Marshal(struct {
		From       string    `json:"from"`
		Message    string    `json:"message"`
		ReceivedAt time.Time `json:"received_at"`
	}{msg.Sender, msg.Body, time.Now().UTC()})
	if err != nil {
		g.Logger.Error("Failed to encode received message", "error", err)
		return
	}
	if token := g.client.Publish(g.config.MqttRecvTopic, 0, false, payload); token.Wait() && token.Error() != nil {
		g.Logger.Error("Failed to publish received message", "error", token.Error())
	}
}

// StartMQTT connects to the configured broker and subscribes to the send
// topic. An empty broker URL disables MQTT entirely.
func (g *Gateway) StartMQTT(ctx context.Context) error {
	if g.config.MqttBroker == "" {
		return nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(g.config.MqttBroker).
		SetClientID(g.config.MqttClientID).
		SetOrderMatters(false).
		SetAutoReconnect(true)
	if g.config.MqttUsername != "" {
		opts.SetUsername(g.config.MqttUsername)
		opts.SetPassword(g.config.MqttPassword)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		g.Logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		g.Logger.Info("MQTT connected, subscribing", "topic", g.config.MqttSendTopic)
		token := c.Subscribe(g.config.MqttSendTopic, 0, g.handleSendRequest)
		if token.Wait() && token.Error() != nil {
			g.Logger.Error("MQTT subscribe failed", "topic", g.config.MqttSendTopic, "error", token.Error())
		}
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to MQTT broker %s: %w", g.config.MqttBroker, token.Error())
	}
	g.client = client

	go func() {
		<-ctx.Done()
		client.Disconnect(500)
	}()
	return nil
}

func (g *Gateway) handleSendRequest(_ mqtt.Client, m mqtt.Message) {
	var req SmsRequest
	if err := json.Unmarshal(m.Payload(), &req); err != nil {
		g.Logger.Error("Bad MQTT send payload", "error", err)
		return
	}
	if req.To == "" || req.Message == "" {
		g.Logger.Error("MQTT send payload missing to/message")
		return
	}
	id, err := g.Enqueue(req)
	if err != nil {
		g.Logger.Error("Failed to enqueue MQTT send request", "error", err)
		return
	}
	g.Logger.Info("Queued MQTT send request", "id", id, "to", req.To)
}
