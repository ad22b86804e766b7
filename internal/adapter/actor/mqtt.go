package actor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chr-braun/kostalbridge/internal/config"
	"github.com/chr-braun/kostalbridge/internal/core/domain"
	"github.com/chr-braun/kostalbridge/internal/events"
	"github.com/chr-braun/kostalbridge/internal/mqtt"
	"github.com/chr-braun/kostalbridge/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTActor is the accessory host surface. On boot it replays the retained
// accessory config topics to rebuild the identity cache, then forwards the
// collected set to its parent before serving publishes.
type MQTTActor struct {
	config         *config.Config
	behavior       actor.Behavior
	stash          *actorutil.Stash
	client         *mqtt.MQTTClient
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	timerScheduler *scheduler.TimerScheduler
	bridge         events.Device
	cached         []domain.CachedDevice
	logger         *zap.Logger
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTCacheSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	ReplyTo *actor.PID
	Error   error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type OnEventStreamMessage struct {
	Event any
}

type cachedAccessoryConfig struct {
	payload *mqtt.AccessoryConfigPayload
}

type pulseRevert struct {
	identity string
	kind     domain.CharacteristicKind
}

type accessoryConfigMessage struct {
	Identity   string                  `json:"identity"`
	Descriptor domain.DeviceDescriptor `json:"descriptor"`
	Accessory  events.GenericAccessory `json:"accessory"`
}

func NewMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		eventStream: eventStream,
		bridge:      events.BridgeDevice(config.MQTT.BaseTopic),
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		state.timerScheduler = scheduler.NewTimerScheduler(ctx)

		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		})

		state.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTConnected{})
			}
		}, 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("mqtt@starting connected")

		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)

		// route command topic messages into the actor
		state.client.SubscribeToCommandTopic(func(c pahomqtt.Client, m pahomqtt.Message) {
			cmd, err := state.client.ParseMQTTCommand(m)
			if err == nil && cmd != nil {
				ctx.Send(ctx.Self(), ParsedCommand{Command: cmd})
			}
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		state.logger.Debug("mqtt@starting subscribed")

		// replay retained accessory configs to rebuild the identity cache
		state.client.Subscribe(state.client.AccessoryConfigWildcardTopic(), 1, func(c pahomqtt.Client, m pahomqtt.Message) {
			payload, err := state.client.ParseAccessoryConfig(m)
			if err == nil {
				ctx.Send(ctx.Self(), cachedAccessoryConfig{payload: payload})
			}
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTCacheSubscribed{})
			}
		}, 1*time.Second)
	case MQTTCacheSubscribed:
		state.logger.Debug("mqtt@starting cache subscribed")
		ctx.SetReceiveTimeout(1 * time.Second)
		state.behavior.Become(state.CacheCollectReceive)
	case MQTTConnectionLost:
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// CacheCollectReceive drains the retained config messages. The broker sends
// retained messages right after subscribe, so a short quiet period means the
// replay is complete.
func (state *MQTTActor) CacheCollectReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case cachedAccessoryConfig:
		state.logger.Debug("mqtt@cache retained accessory config",
			zap.String("identity", msg.payload.Identity),
			zap.String("serial", msg.payload.Descriptor.SerialNumber))
		state.cached = append(state.cached, domain.CachedDevice{
			Identity:   msg.payload.Identity,
			Descriptor: msg.payload.Descriptor,
		})
		ctx.SetReceiveTimeout(1 * time.Second)
	case *actor.ReceiveTimeout:
		state.logger.Debug("mqtt@cache replay complete", zap.Int("count", len(state.cached)))
		ctx.CancelReceiveTimeout()
		state.client.Unsubscribe(state.client.AccessoryConfigWildcardTopic(), func(error) {}, 1*time.Second)
		ctx.Send(ctx.Parent(), domain.AdoptCachedDevicesRequest{Devices: state.cached})

		state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
			ctx.Send(ctx.Self(), OnEventStreamMessage{Event: value})
		})

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		state.logger.Error("mqtt@cache connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@cache stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		// route command to parent
		state.logger.Debug("mqtt@default parsedCommand", zap.Any("command", msg.Command))
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishMessageRequest:
		state.logger.Debug("mqtt@default PublishMessageRequest", zap.Any("message", msg))
		state.publishMessage(ctx, msg.Topic, msg.Payload, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx))
	case OnEventStreamMessage:
		state.logger.Debug("mqtt@default OnEventStreamMessage", zap.String("type", fmt.Sprintf("%T", msg.Event)))
		state.publishEvent(ctx, msg.Event)
	case pulseRevert:
		state.publishRaw(ctx, state.client.CharacteristicStateTopic(msg.identity, msg.kind), mqtt.MQTT_PAYLOAD_OFF, false)
	case domain.PublishAccessoryConfigRequest:
		state.logger.Debug("mqtt@default PublishAccessoryConfigRequest", zap.Int("count", len(msg.Accessories)))
		err := state.publishAccessoryConfigs(msg.Accessories)
		if err != nil {
			state.logger.Error("mqtt@default PublishAccessoryConfigRequest error", zap.Error(err))
		}
		if msg.ReplyToRef != nil || ctx.Sender() != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.PublishAccessoryConfigResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			})
		}
	case MQTTConnectionLost:
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MQTTActor) event2MQTTMessage(event any) *rawMessage {
	switch msg := event.(type) {
	case domain.BoolCharacteristicUpdateEvent:
		return &rawMessage{
			topic:   state.client.CharacteristicStateTopic(msg.DeviceIdentity(), msg.Characteristic()),
			message: bool2MQTTPayload(msg.Value),
			retain:  true,
		}
	case domain.FloatCharacteristicUpdateEvent:
		return &rawMessage{
			topic:   state.client.CharacteristicStateTopic(msg.DeviceIdentity(), msg.Characteristic()),
			message: fmt.Sprintf(fmt.Sprintf("%%.%df", msg.Decimals), msg.Value),
			retain:  true,
		}
	case domain.BridgeStateUpdateEvent:
		var stringMessage string
		if msg.Value {
			stringMessage = mqtt.MQTT_PAYLOAD_ONLINE
		} else {
			stringMessage = mqtt.MQTT_PAYLOAD_OFFLINE
		}
		return &rawMessage{
			topic:   state.client.BridgeStateTopic(),
			message: stringMessage,
			retain:  true,
		}
	default:
		return nil
	}
}

type rawMessage struct {
	topic   string
	message string
	retain  bool
}

func (state *MQTTActor) publishEvent(ctx actor.Context, event any) {
	if pulse, ok := event.(domain.PulseCharacteristicEvent); ok {
		// momentary: set active, revert after one second
		state.publishRaw(ctx, state.client.CharacteristicStateTopic(pulse.DeviceIdentity(), pulse.Characteristic()), mqtt.MQTT_PAYLOAD_ON, false)
		state.timerScheduler.RequestOnce(1*time.Second, ctx.Self(), pulseRevert{
			identity: pulse.DeviceIdentity(),
			kind:     pulse.Characteristic(),
		})
		return
	}
	msg := state.event2MQTTMessage(event)
	if msg != nil {
		state.logger.Sugar().Debugf("mqtt@publish: event publish %s => %s", msg.topic, msg.message)
		state.client.Publish(msg.topic, msg.message, 1, msg.retain, func(err error) {
			ctx.Send(ctx.Self(), publishResult{Error: err})
		}, 5*time.Second)
		state.behavior.BecomeStacked(state.PublishResultReceive)
	}
}

func (state *MQTTActor) publishRaw(ctx actor.Context, topic, payload string, retain bool) {
	state.client.Publish(topic, payload, 1, retain, func(err error) {
		ctx.Send(ctx.Self(), publishResult{Error: err})
	}, 5*time.Second)
	state.behavior.BecomeStacked(state.PublishResultReceive)
}

func (state *MQTTActor) publishMessage(ctx actor.Context, topic, payload string, retain bool, replyTo *actor.PID) {
	state.logger.Sugar().Debugf("mqtt@publish: message publish %s => %s", topic, payload)
	state.client.Publish(topic, payload, 1, retain, func(err error) {
		ctx.Send(ctx.Self(), publishResult{ReplyTo: replyTo, Error: err})
	}, 5*time.Second)
	state.behavior.BecomeStacked(state.PublishResultReceive)
}

func (state *MQTTActor) PublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.Error))
		}
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, domain.PublishMessageResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: msg.Error,
				},
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// publishAccessoryConfigs writes one retained config message per accessory.
// These survive broker restarts and seed the cache replay on the next boot.
func (state *MQTTActor) publishAccessoryConfigs(accessories []domain.RegisteredAccessory) error {
	for i := range accessories {
		msg := accessoryConfigMessage{
			Identity:   accessories[i].Identity,
			Descriptor: accessories[i].Descriptor,
			Accessory:  events.ToGenericAccessory(state.bridge, accessories[i].Identity, accessories[i].Descriptor),
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := state.client.AccessoryConfigTopic(accessories[i].Identity)
		state.client.Publish(topic, payload, 0, true, func(error) {}, 1*time.Second)
	}
	return nil
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
	if state.client != nil {
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
		state.client.Disconnect(500 * time.Millisecond)
	}
}

func bool2MQTTPayload(value bool) string {
	if value {
		return mqtt.MQTT_PAYLOAD_ON
	} else {
		return mqtt.MQTT_PAYLOAD_OFF
	}
}

// Dummy actor
func NewTestMQTTActor(config *config.Config, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:   config,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		ctx.Send(ctx.Parent(), domain.AdoptCachedDevicesRequest{})
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@dummy ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case domain.PublishMessageRequest:
		if msg.ReplyToRef != nil || ctx.Sender() != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.PublishMessageResponse{})
		}
	case domain.PublishAccessoryConfigRequest:
		if msg.ReplyToRef != nil || ctx.Sender() != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.PublishAccessoryConfigResponse{})
		}
	}
}
