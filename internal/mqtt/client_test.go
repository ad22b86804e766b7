package mqtt

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/util"

	"github.com/stretchr/testify/assert"
)

type testMessage struct {
	topic   string
	payload []byte
}

func (m testMessage) Duplicate() bool   { return false }
func (m testMessage) Qos() byte         { return 0 }
func (m testMessage) Retained() bool    { return true }
func (m testMessage) Topic() string     { return m.topic }
func (m testMessage) MessageID() uint16 { return 0 }
func (m testMessage) Payload() []byte   { return m.payload }
func (m testMessage) Ack()              {}

func newTestClient() *MQTTClient {
	cfg := util.LoadTestConfig()
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestTopicBuilders(t *testing.T) {

	assert := assert.New(t)

	client := newTestClient()

	assert.Equal("kostalbridge/bridge/state", client.BridgeStateTopic())
	assert.Equal("kostalbridge/accessory/abc-123/config", client.AccessoryConfigTopic("abc-123"))
	assert.Equal("kostalbridge/accessory/+/config", client.AccessoryConfigWildcardTopic())
	assert.Equal("kostalbridge/accessory/abc-123/on/state",
		client.CharacteristicStateTopic("abc-123", domain.CHARACTERISTIC_ON))
	assert.Equal("kostalbridge/report/text", client.ReportTextTopic())
	assert.Equal("kostalbridge/report/text", ReportTextTopic("kostalbridge"))
	assert.Equal("kostalbridge/report/trigger", client.ReportTriggerTopic())
}

func TestParseMQTTCommand(t *testing.T) {

	assert := assert.New(t)

	client := newTestClient()

	cmd, err := client.ParseMQTTCommand(testMessage{topic: "kostalbridge/report/trigger", payload: []byte("now")})
	assert.NoError(err)
	assert.Equal(COMMAND_REPORT_TRIGGER, cmd.Command)
	assert.Equal("now", cmd.Payload)

	_, err = client.ParseMQTTCommand(testMessage{topic: "kostalbridge/other/topic"})
	assert.Error(err)
}

func TestParseAccessoryConfig(t *testing.T) {

	assert := assert.New(t)

	client := newTestClient()
	identity := "0f8fad5b-d9cb-469f-a165-70867728950e"

	descriptor := domain.DeviceDescriptor{
		Name:         "Kostal Inverter",
		Model:        "Piko 5.5",
		SerialNumber: "90342.1561",
		Kind:         domain.DEVICE_KIND_MAIN,
	}
	payload, err := json.Marshal(AccessoryConfigPayload{Identity: identity, Descriptor: descriptor})
	assert.NoError(err)

	parsed, err := client.ParseAccessoryConfig(testMessage{
		topic:   fmt.Sprintf("kostalbridge/accessory/%s/config", identity),
		payload: payload,
	})
	assert.NoError(err)
	assert.Equal(identity, parsed.Identity)
	assert.Equal("90342.1561", parsed.Descriptor.SerialNumber)
}

func TestParseAccessoryConfigIdentityFromTopic(t *testing.T) {

	assert := assert.New(t)

	client := newTestClient()
	identity := "0f8fad5b-d9cb-469f-a165-70867728950e"

	// identity omitted from the payload: the topic supplies it
	payload := []byte(`{"descriptor":{"name":"Inverter","serial_number":"SN1","kind":"main"}}`)
	parsed, err := client.ParseAccessoryConfig(testMessage{
		topic:   fmt.Sprintf("kostalbridge/accessory/%s/config", identity),
		payload: payload,
	})
	assert.NoError(err)
	assert.Equal(identity, parsed.Identity)
}

func TestParseAccessoryConfigRejections(t *testing.T) {

	assert := assert.New(t)

	client := newTestClient()

	// topic outside the accessory config namespace
	_, err := client.ParseAccessoryConfig(testMessage{topic: "kostalbridge/bridge/state", payload: []byte("{}")})
	assert.Error(err)

	// payload identity disagrees with the topic
	_, err = client.ParseAccessoryConfig(testMessage{
		topic:   "kostalbridge/accessory/abc-123/config",
		payload: []byte(`{"identity":"other","descriptor":{"serial_number":"SN1","kind":"main"}}`),
	})
	assert.Error(err)

	// descriptor with an unknown kind
	_, err = client.ParseAccessoryConfig(testMessage{
		topic:   "kostalbridge/accessory/abc-123/config",
		payload: []byte(`{"descriptor":{"serial_number":"SN1","kind":"toaster"}}`),
	})
	assert.Error(err)

	// descriptor without a serial number
	_, err = client.ParseAccessoryConfig(testMessage{
		topic:   "kostalbridge/accessory/abc-123/config",
		payload: []byte(`{"descriptor":{"kind":"main"}}`),
	})
	assert.Error(err)

	// malformed JSON
	_, err = client.ParseAccessoryConfig(testMessage{
		topic:   "kostalbridge/accessory/abc-123/config",
		payload: []byte("not json"),
	})
	assert.Error(err)
}
