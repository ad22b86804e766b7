package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/chr-braun/kostalbridge/internal/config"
	"github.com/chr-braun/kostalbridge/internal/core/domain"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"

	COMMAND_REPORT_TRIGGER = "report_trigger"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("kostalbridge_%d", rand.IntN(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:                mqtt.NewClient(opts),
		cfg:                   cfg.MQTT,
		accessoryConfigRegexp: accessoryConfigExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client                mqtt.Client
	cfg                   config.MQTTConfig
	accessoryConfigRegexp *regexp.Regexp
}

type ParsedMQTTCommand struct {
	Command string
	Payload string
}

// AccessoryConfigPayload is the retained JSON published per accessory. It
// doubles as the durable identity cache: on startup the bridge reads these
// back to re-adopt devices under their previous identity.
type AccessoryConfigPayload struct {
	Identity   string                  `json:"identity"`
	Descriptor domain.DeviceDescriptor `json:"descriptor"`
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) AccessoryConfigTopic(identity string) string {
	return fmt.Sprintf("%s/accessory/%s/config", c.baseTopic(), identity)
}

func (c *MQTTClient) AccessoryConfigWildcardTopic() string {
	return fmt.Sprintf("%s/accessory/+/config", c.baseTopic())
}

func (c *MQTTClient) CharacteristicStateTopic(identity string, kind domain.CharacteristicKind) string {
	return fmt.Sprintf("%s/accessory/%s/%s/state", c.baseTopic(), identity, kind)
}

func (c *MQTTClient) ReportTextTopic() string {
	return ReportTextTopic(c.baseTopic())
}

func (c *MQTTClient) ReportTriggerTopic() string {
	return fmt.Sprintf("%s/report/trigger", c.baseTopic())
}

func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	if msg.Topic() == c.ReportTriggerTopic() {
		return &ParsedMQTTCommand{
			Command: COMMAND_REPORT_TRIGGER,
			Payload: string(msg.Payload()),
		}, nil
	}
	return nil, errors.New("invalid command")
}

// ParseAccessoryConfig decodes a retained accessory config message. The
// identity embedded in the payload wins over the one in the topic as long as
// both are present; mismatched or malformed messages are rejected.
func (c *MQTTClient) ParseAccessoryConfig(msg mqtt.Message) (*AccessoryConfigPayload, error) {
	matches := c.accessoryConfigRegexp.FindAllStringSubmatch(msg.Topic(), 1)
	if len(matches) == 0 || len(matches[0]) != 2 {
		return nil, errors.New("invalid accessory config topic")
	}
	var payload AccessoryConfigPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		return nil, err
	}
	if payload.Identity == "" {
		payload.Identity = matches[0][1]
	}
	if payload.Identity != matches[0][1] {
		return nil, errors.New("accessory config identity mismatch")
	}
	if !payload.Descriptor.Kind.Valid() || payload.Descriptor.SerialNumber == "" {
		return nil, errors.New("invalid accessory descriptor")
	}
	return &payload, nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.ReportTriggerTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	token := c.client.Unsubscribe(topic)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT unsubscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

// ReportTextTopic is package level so the report scheduler can address it
// without holding a client.
func ReportTextTopic(baseTopic string) string {
	return fmt.Sprintf("%s/report/text", baseTopic)
}

func accessoryConfigExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("%s/accessory/([a-zA-Z0-9-]+)/config", baseTopic))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
