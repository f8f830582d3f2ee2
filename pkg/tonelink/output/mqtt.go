package output

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/norasector/tonelink/pkg/chat"
	"github.com/norasector/tonelink/pkg/tonelink/config"
	"github.com/rs/zerolog/log"
)

const (
	mqttTimeout  = 5 * time.Second
	mqttClientID = "tonelink"
)

// Sender is the "send this text" entry point of a link.
type Sender interface {
	Send(text string) chat.Message
}

// MQTTBridge publishes chat events as JSON and forwards text published on
// the send topic to the link.
type MQTTBridge struct {
	cfg      config.MQTT
	sender   Sender
	client   paho.Client
	recvChan chan chat.Event
	sendChan chan string
}

type bridgeEvent struct {
	Direction string       `json:"direction"`
	Message   chat.Message `json:"message"`
	Count     int          `json:"count"`
}

// ClientID derives a stable per-host client id.
func ClientID(name string) string {
	if name == "" {
		name = mqttClientID
	}
	id, err := machineid.ProtectedID(name)
	if err != nil {
		log.Warn().Err(err).Msg("could not read machine id")
		return name
	}
	return fmt.Sprintf("%s-%s", name, id[:12])
}

func NewMQTTBridge(cfg config.MQTT, sender Sender) *MQTTBridge {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(ClientID(cfg.ClientName)).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	return newMQTTBridge(cfg, sender, paho.NewClient(opts))
}

func newMQTTBridge(cfg config.MQTT, sender Sender, client paho.Client) *MQTTBridge {
	return &MQTTBridge{
		cfg:      cfg,
		sender:   sender,
		client:   client,
		recvChan: make(chan chat.Event, receiveChannels),
		sendChan: make(chan string, receiveChannels),
	}
}

func (m *MQTTBridge) Receive() chan<- chat.Event {
	return m.recvChan
}

func waitToken(token paho.Token) error {
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("mqtt operation timed out after %s", mqttTimeout)
	}
	return token.Error()
}

// handleSend queues text received on the send topic for the Start loop.
func (m *MQTTBridge) handleSend(_ paho.Client, msg paho.Message) {
	text := string(msg.Payload())
	if text == "" {
		return
	}
	select {
	case m.sendChan <- text:
	default:
		log.Warn().Str("topic", msg.Topic()).Msg("send queue full, dropping message")
	}
}

func (m *MQTTBridge) Start(ctx context.Context) error {
	if err := waitToken(m.client.Connect()); err != nil {
		return fmt.Errorf("error connecting to %s: %w", m.cfg.Broker, err)
	}
	defer m.client.Disconnect(250)

	if m.cfg.SendTopic != "" {
		if err := waitToken(m.client.Subscribe(m.cfg.SendTopic, 1, m.handleSend)); err != nil {
			return fmt.Errorf("error subscribing to %s: %w", m.cfg.SendTopic, err)
		}
	}
	log.Info().Str("broker", m.cfg.Broker).Str("topic", m.cfg.Topic).Msg("mqtt bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case text := <-m.sendChan:
			if m.sender != nil {
				m.sender.Send(text)
			}

		case evt := <-m.recvChan:
			payload, err := json.Marshal(bridgeEvent{
				Direction: evt.Direction.String(),
				Message:   evt.Message,
				Count:     evt.Snapshot.Count,
			})
			if err != nil {
				log.Warn().Err(err).Msg("error marshaling event")
				continue
			}
			// publish tokens are not awaited
			m.client.Publish(fmt.Sprintf("%s/%s", m.cfg.Topic, evt.Direction), 0, false, payload)
		}
	}
}
