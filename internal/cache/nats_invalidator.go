package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Nootest/3DShooting/internal/logging"
)

// NATSInvalidator реализует Invalidator поверх NATS Pub/Sub.
// Собственные сообщения узла и повторные доставки в окне дедупликации игнорируются.
type NATSInvalidator struct {
	conn    *nats.Conn
	config  InvalidatorConfig
	nodeID  string
	handler InvalidationHandler

	mu           sync.Mutex
	subscription *nats.Subscription
	recentKeys   map[string]time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup

	publishedCount atomic.Int64
	receivedCount  atomic.Int64
	errorsCount    atomic.Int64

	logger *logging.Logger
}

// InvalidatorConfig содержит конфигурацию для NATS invalidator
type InvalidatorConfig struct {
	NATSURL       string        `yaml:"nats_url"`
	Subject       string        `yaml:"subject"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	DedupeWindow  time.Duration `yaml:"dedupe_window"`
}

// InvalidationMessage - сообщение об инвалидации ключа
type InvalidationMessage struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
}

// NewNATSInvalidator подключается к NATS; nodeID - уникальный идентификатор узла
func NewNATSInvalidator(config InvalidatorConfig, nodeID string) (*NATSInvalidator, error) {
	if config.Subject == "" {
		config.Subject = "shooter.cache.invalidation"
	}
	if config.MaxReconnects == 0 {
		config.MaxReconnects = 10
	}
	if config.ReconnectWait == 0 {
		config.ReconnectWait = 2 * time.Second
	}
	if config.DedupeWindow == 0 {
		config.DedupeWindow = time.Second
	}

	logger := logging.GetComponentLogger("cache")
	conn, err := nats.Connect(config.NATSURL,
		nats.Name("3dshooting-cache-"+nodeID),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	n := &NATSInvalidator{
		conn:       conn,
		config:     config,
		nodeID:     nodeID,
		recentKeys: make(map[string]time.Time),
		stopCh:     make(chan struct{}),
		logger:     logger,
	}
	n.startDedupeCleanup()

	logger.Info("📨 NATS invalidator: %s (subject: %s, node: %s)", config.NATSURL, config.Subject, nodeID)
	return n, nil
}

// PublishInvalidation отправляет уведомление об инвалидации ключа
func (n *NATSInvalidator) PublishInvalidation(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(InvalidationMessage{Key: key, Timestamp: time.Now().UTC(), NodeID: n.nodeID})
	if err != nil {
		n.errorsCount.Add(1)
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}
	if err := n.conn.Publish(n.config.Subject, data); err != nil {
		n.errorsCount.Add(1)
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	n.publishedCount.Add(1)
	n.logger.Debug("Published invalidation for key: %s", key)
	return nil
}

// SubscribeInvalidations подписывается на уведомления об инвалидации
func (n *NATSInvalidator) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscription != nil {
		return fmt.Errorf("already subscribed to invalidations")
	}
	n.handler = handler

	sub, err := n.conn.Subscribe(n.config.Subject, n.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to invalidations: %w", err)
	}
	n.subscription = sub

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		select {
		case <-ctx.Done():
		case <-n.stopCh:
		}
		n.unsubscribe()
	}()
	return nil
}

// Close закрывает соединение с NATS
func (n *NATSInvalidator) Close() error {
	close(n.stopCh)
	n.wg.Wait()
	n.conn.Close()
	n.logger.Info("NATS invalidator closed")
	return nil
}

// GetMetrics возвращает счётчики invalidator
func (n *NATSInvalidator) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"published_count": n.publishedCount.Load(),
		"received_count":  n.receivedCount.Load(),
		"errors_count":    n.errorsCount.Load(),
		"connected":       n.conn.IsConnected(),
	}
}

func (n *NATSInvalidator) handleMessage(msg *nats.Msg) {
	n.receivedCount.Add(1)

	var im InvalidationMessage
	if err := json.Unmarshal(msg.Data, &im); err != nil {
		n.errorsCount.Add(1)
		n.logger.Warn("⚠️ Битое сообщение инвалидации: %v", err)
		return
	}
	if im.NodeID == n.nodeID || n.seenRecently(im.NodeID+"|"+im.Key+"|"+im.Timestamp.Format(time.RFC3339Nano)) {
		return
	}
	if err := n.handler(im.Key); err != nil {
		n.errorsCount.Add(1)
		n.logger.Error("Invalidation handler failed for key %s: %v", im.Key, err)
	}
}

func (n *NATSInvalidator) unsubscribe() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscription == nil {
		return
	}
	if err := n.subscription.Unsubscribe(); err != nil {
		n.logger.Error("Failed to unsubscribe from invalidations: %v", err)
	}
	n.subscription = nil
}

// seenRecently отмечает сообщение и сообщает, приходило ли оно в окне дедупликации.
// Повторная инвалидация того же ключа с другим временем не отбрасывается.
func (n *NATSInvalidator) seenRecently(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := time.Now()
	last, ok := n.recentKeys[key]
	n.recentKeys[key] = now
	return ok && now.Sub(last) < n.config.DedupeWindow
}

func (n *NATSInvalidator) startDedupeCleanup() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ticker := time.NewTicker(n.config.DedupeWindow * 10)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n.mu.Lock()
				for key, ts := range n.recentKeys {
					if time.Since(ts) > n.config.DedupeWindow {
						delete(n.recentKeys, key)
					}
				}
				n.mu.Unlock()
			case <-n.stopCh:
				return
			}
		}
	}()
}
