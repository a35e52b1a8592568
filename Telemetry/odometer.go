package Telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Gmao/Assets"
	"Gmao/Models"
)

// Reading is one odometer sample published by a truck's tracker.
type Reading struct {
	TruckID uint  `json:"truck_id"`
	Mileage int64 `json:"mileage"`
}

// OdometerIngester keeps truck mileage current from MQTT readings so usage
// plans see the live counter.
type OdometerIngester struct {
	DB     *gorm.DB
	Topic  string
	client mqtt.Client
}

func NewOdometerIngester(db *gorm.DB, broker, clientID, topic string) *OdometerIngester {
	ing := &OdometerIngester{DB: db, Topic: topic}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(10 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			// subscriptions are not kept across reconnects
			if token := c.Subscribe(ing.Topic, 1, ing.Handle); token.Wait() && token.Error() != nil {
				log.WithError(token.Error()).WithField("topic", ing.Topic).Error("Failed to subscribe to odometer topic")
				return
			}
			log.WithField("topic", ing.Topic).Info("Subscribed to odometer readings")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	ing.client = mqtt.NewClient(opts)
	return ing
}

// Start connects to the broker; the subscription happens on connect.
func (i *OdometerIngester) Start() error {
	token := i.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return fmt.Errorf("connecting to MQTT broker: timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", err)
	}
	return nil
}

func (i *OdometerIngester) Stop() {
	if i.client != nil && i.client.IsConnected() {
		i.client.Disconnect(250)
	}
}

// Handle is the MQTT message callback.
func (i *OdometerIngester) Handle(_ mqtt.Client, msg mqtt.Message) {
	reading, err := Parse(msg.Payload())
	if err != nil {
		log.WithError(err).WithField("topic", msg.Topic()).Warn("Dropping malformed odometer reading")
		return
	}
	if _, err := i.Record(reading); err != nil {
		log.WithError(err).WithFields(log.Fields{"truck_id": reading.TruckID, "mileage": reading.Mileage}).Error("Failed to record odometer reading")
	}
}

// Record stores the reading in its own transaction. It reports whether the
// stored mileage moved; lower readings are ignored.
func (i *OdometerIngester) Record(r Reading) (bool, error) {
	var raised bool
	err := i.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		raised, err = Assets.RecordReading(tx, Models.AssetRef{Kind: Models.AssetTruck, ID: r.TruckID}, r.Mileage)
		return err
	})
	return raised, err
}

func Parse(payload []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return r, fmt.Errorf("decoding reading: %w", err)
	}
	if r.TruckID == 0 {
		return r, fmt.Errorf("reading has no truck_id")
	}
	if r.Mileage < 0 {
		return r, fmt.Errorf("negative mileage %d", r.Mileage)
	}
	return r, nil
}
