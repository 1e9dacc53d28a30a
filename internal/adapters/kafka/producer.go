package kafka

import (
	"strconv"
	"sync"
	"time"

	"task-service/internal/websocket"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

func newProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = false
	config.Producer.Return.Errors = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner // keeps one user's events ordered
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.MaxMessageBytes = 1000000
	config.Version = sarama.V2_0_0_0
	config.ClientID = "task-service"
	return config
}

// AuditTap mirrors every dispatched event onto a Kafka topic. It never blocks the
// dispatcher: when the producer input is saturated the event is dropped and logged.
type AuditTap struct {
	producer sarama.AsyncProducer
	topic    string
	now      func() time.Time
	log      *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAuditTap(brokers []string, topic string, log *zap.Logger) (*AuditTap, error) {
	producer, err := sarama.NewAsyncProducer(brokers, newProducerConfig())
	if err != nil {
		return nil, err
	}
	return newAuditTap(producer, topic, log), nil
}

func newAuditTap(producer sarama.AsyncProducer, topic string, log *zap.Logger) *AuditTap {
	t := &AuditTap{
		producer: producer,
		topic:    topic,
		now:      time.Now,
		log:      log.Named("kafka-audit"),
	}
	t.wg.Add(1)
	go t.drainErrors()
	return t
}

func (t *AuditTap) drainErrors() {
	defer t.wg.Done()
	for perr := range t.producer.Errors() {
		t.log.Warn("Failed to publish audit event", zap.String("topic", perr.Msg.Topic), zap.Error(perr.Err))
	}
}

func (t *AuditTap) Record(ev websocket.Event) {
	value, err := EncodeEvent(ev, t.now())
	if err != nil {
		t.log.Error("Failed to encode audit event", zap.String("event", ev.Kind.String()), zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic:   t.topic,
		Key:     sarama.StringEncoder(strconv.FormatUint(uint64(ev.UserID), 10)),
		Value:   sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{{Key: []byte(OriginHeader), Value: []byte(OriginAudit)}},
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.producer.Input() <- msg:
	default:
		t.log.Warn("Audit producer saturated, dropping event", zap.String("event", ev.Kind.String()))
	}
}

// Close flushes buffered messages and stops the producer
func (t *AuditTap) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.producer.AsyncClose()
	t.wg.Wait()
	return nil
}
