package server

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/Shopify/sarama"

	"github.com/janelia-flyem/voxchunk/dvid"
)

// KafkaMaxMessageSize is the max message size in bytes for a Kafka message.
const KafkaMaxMessageSize = 980 * dvid.Kilo

// Mutation describes one change to resident chunks.
type Mutation struct {
	Action    string        `json:"Action"`
	Chunk     string        `json:"Chunk,omitempty"`
	Voxel     *dvid.Point3d `json:"Voxel,omitempty"`
	Value     *int          `json:"Value,omitempty"`
	Voxels    int           `json:"Voxels,omitempty"`
	Timestamp int64         `json:"Timestamp"`
}

// Publisher receives mutations after they are applied.
type Publisher interface {
	Publish(m Mutation)
	Close() error
}

// NopPublisher discards mutations.
type NopPublisher struct{}

func (NopPublisher) Publish(Mutation) {}
func (NopPublisher) Close() error     { return nil }

// KafkaPublisher sends mutations as JSON to a kafka topic.  Sends are asynchronous
// and failures are logged.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	log      dvid.Logger
	done     chan struct{}
}

// NewKafkaPublisher connects to the configured kafka servers.
func NewKafkaPublisher(c KafkaConfig, logger dvid.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.MaxMessageBytes = KafkaMaxMessageSize
	producer, err := sarama.NewAsyncProducer(c.Servers, config)
	if err != nil {
		return nil, err
	}
	return NewKafkaPublisherFromProducer(producer, c.Topic, logger), nil
}

// NewKafkaPublisherFromProducer publishes through an existing producer, which the
// publisher takes ownership of.
func NewKafkaPublisherFromProducer(producer sarama.AsyncProducer, topic string, logger dvid.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = dvid.NopLogger{}
	}
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      logger,
		done:     make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		for err := range producer.Errors() {
			p.log.Errorf("error on kafka send to topic %q: %v\n", p.topic, err)
		}
	}()
	logger.Infof("Kafka topic for mutations: %s\n", topic)
	return p
}

// Publish queues a mutation for sending.
func (p *KafkaPublisher) Publish(m Mutation) {
	if m.Timestamp == 0 {
		m.Timestamp = time.Now().UnixNano()
	}
	jsonmsg, err := json.Marshal(m)
	if err != nil {
		p.log.Errorf("unable to marshal mutation for kafka: %v\n", err)
		return
	}
	timeKey := sarama.StringEncoder(strconv.FormatInt(m.Timestamp, 10))
	p.producer.Input() <- &sarama.ProducerMessage{Topic: p.topic, Key: timeKey, Value: sarama.ByteEncoder(jsonmsg)}
}

// Close flushes queued messages and shuts down the producer.
func (p *KafkaPublisher) Close() error {
	err := p.producer.Close()
	<-p.done
	if err != nil {
		p.log.Errorf("Kafka producer had error on close: %v\n", err)
		return err
	}
	p.log.Infof("Successfully shut down kafka producer.\n")
	return nil
}
