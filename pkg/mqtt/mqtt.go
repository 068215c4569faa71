// Package mqtt provides MQTT communication capabilities for the bot.
// It publishes events and answers request/response calls from other services.
package mqtt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	requestPrefix  = "pancy/request/"
	responsePrefix = "pancy/response/"
	publishTimeout = 5 * time.Second
)

// ErrNotConnected is returned while the broker is unreachable
var ErrNotConnected = errors.New("cliente MQTT no conectado")

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client   mqtt.Client
	clientID string
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(host, port, username, password, clientID string) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(host, port, username, password, clientID)
	})
	return communicator
}

// Get returns the global MQTT communicator
func Get() *MqttCommunicator {
	return communicator
}

// NewMqttCommunicator creates a new MQTT communicator
func NewMqttCommunicator(host, port, username, password, clientID string) *MqttCommunicator {
	mc := &MqttCommunicator{
		clientID: clientID,
	}

	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", clientID), "MQTT")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(opts)

	token := mc.client.Connect()
	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return mc
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.client != nil && mc.client.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc.client != nil && mc.client.IsConnected()
}

// Publish sends a message to a topic
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	if !mc.IsConnected() {
		return ErrNotConnected
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "serializando payload")
	}

	token := mc.client.Publish(topic, 1, false, jsonData)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Newf("publicación en %s expirada", topic)
	}
	return token.Error()
}

// RequestHandler is a function type for handling MQTT requests
type RequestHandler func(payload map[string]interface{}) (interface{}, error)

// On registers a handler for a request topic
func (mc *MqttCommunicator) On(requestTopic string, callback RequestHandler) {
	topic := requestPrefix + requestTopic

	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		// overlapping subscriptions share paho's router
		if !topicMatch(topic, msg.Topic()) {
			return
		}
		responseTopic, response, err := handleRequest(msg.Topic(), msg.Payload(), callback)
		if err != nil {
			logger.Error(fmt.Sprintf("Error procesando la petición MQTT: %v", err), "MQTT")
			return
		}
		if err := mc.Publish(responseTopic, response); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo responder en %s: %v", responseTopic, err), "MQTT")
		}
	})

	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error suscribiendo al topic %s: %v", topic, token.Error()), "MQTT")
	}
}

// handleRequest decodes a request, runs callback and builds the response
// together with the topic it must be published on
func handleRequest(receivedTopic string, raw []byte, callback RequestHandler) (string, MqttResponse, error) {
	var request MqttRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		return "", MqttResponse{}, errors.Wrap(err, "petición MQTT inválida")
	}
	if request.CorrelationID == "" {
		return "", MqttResponse{}, errors.New("petición MQTT sin correlationId")
	}

	actualTopic := strings.TrimPrefix(receivedTopic, requestPrefix)
	responseTopic := fmt.Sprintf("%s%s/%s", responsePrefix, actualTopic, request.CorrelationID)

	payloadMap := make(map[string]interface{})
	if pm, ok := request.Payload.(map[string]interface{}); ok {
		payloadMap = pm
	}
	payloadMap["_topic"] = actualTopic

	response := MqttResponse{CorrelationID: request.CorrelationID}
	data, err := callback(payloadMap)
	if err != nil {
		response.Error = err.Error()
	} else {
		response.Data = data
	}
	return responseTopic, response, nil
}

// topicMatch checks if a received topic matches a pattern (with wildcards)
// '+' matches exactly one topic level
// '#' matches zero or more topic levels and must be the last character
func topicMatch(pattern, topic string) bool {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	patternLen := len(patternParts)
	topicLen := len(topicParts)

	for i := 0; i < patternLen; i++ {
		// '#' wildcard matches zero or more remaining levels
		if patternParts[i] == "#" {
			return true // # matches everything that follows (including nothing)
		}

		// If we've run out of topic parts but pattern still has parts (not #)
		if i >= topicLen {
			return false
		}

		// '+' matches exactly one topic level
		if patternParts[i] == "+" {
			continue
		}

		// Exact match required
		if patternParts[i] != topicParts[i] {
			return false
		}
	}

	// Pattern exhausted, topic must also be exhausted for a match
	return patternLen == topicLen
}
