package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ZRIAdventures/go-tour-capacity/internal/config"
	"github.com/ZRIAdventures/go-tour-capacity/internal/pkg/logger"
	"github.com/ZRIAdventures/go-tour-capacity/internal/pkg/metrics"
)

// Event は支払い状態変更の通知ペイロード
// 変更前の状態は呼び出し側から明示的に渡される
// （共有状態に「前の値」を保持する方式は並行リクエストで壊れるため採らない）
type Event struct {
	DeliveryID     string    `json:"delivery_id"`
	BookingID      string    `json:"booking_id"`
	DepartureID    string    `json:"departure_id"`
	PreviousStatus string    `json:"previous_status"`
	CurrentStatus  string    `json:"current_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Notifier は外部エンドポイントへのfire-and-forget通知を行う
// リトライは行わず、失敗はログとメトリクスに記録するのみ
type Notifier struct {
	endpoint string
	client   *http.Client
	metrics  *metrics.Metrics
	events   chan Event
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewNotifier は新しいNotifierを作成する
func NewNotifier(cfg *config.WebhookConfig, m *metrics.Metrics) *Notifier {
	return &Notifier{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		metrics:  m,
		events:   make(chan Event, cfg.Buffer),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Notify は通知をキューに積む（ブロックしない）
// バッファが満杯の場合は破棄してログに残す
func (n *Notifier) Notify(e Event) {
	if e.DeliveryID == "" {
		e.DeliveryID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	select {
	case n.events <- e:
	default:
		logger.Warn("Webhookバッファが満杯のため通知を破棄",
			zap.String("delivery_id", e.DeliveryID),
			zap.String("booking_id", e.BookingID),
		)
		if n.metrics != nil {
			n.metrics.WebhookDeliveriesTotal.WithLabelValues("dropped").Inc()
		}
	}
}

// Start は通知の配信ループを開始する
func (n *Notifier) Start(ctx context.Context) {
	logger.Info("Webhook通知ワーカー開始", zap.String("endpoint", n.endpoint))

	defer close(n.doneCh)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Webhook通知ワーカー停止（コンテキストキャンセル）")
			return
		case <-n.stopCh:
			logger.Info("Webhook通知ワーカー停止（シグナル受信）")
			return
		case e := <-n.events:
			n.deliver(ctx, e)
		}
	}
}

// Stop はワーカーを停止する
func (n *Notifier) Stop() {
	close(n.stopCh)
	<-n.doneCh
}

// deliver は1件の通知を配信する
func (n *Notifier) deliver(ctx context.Context, e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		logger.Error("Webhookペイロードの作成に失敗", zap.Error(err))
		n.record("failed")
		return
	}

	// 旧実装との互換のため、変更前の状態はクエリパラメータでも渡す
	target := n.endpoint
	if u, parseErr := url.Parse(n.endpoint); parseErr == nil {
		q := u.Query()
		q.Set("previousPaymentStatus", e.PreviousStatus)
		u.RawQuery = q.Encode()
		target = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		logger.Error("Webhookリクエストの作成に失敗", zap.Error(err))
		n.record("failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", e.DeliveryID)

	resp, err := n.client.Do(req)
	if err != nil {
		logger.Error("Webhook配信に失敗",
			zap.String("delivery_id", e.DeliveryID),
			zap.String("booking_id", e.BookingID),
			zap.Error(err),
		)
		n.record("failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Error("Webhook配信がエラー応答",
			zap.String("delivery_id", e.DeliveryID),
			zap.Int("status", resp.StatusCode),
		)
		n.record("failed")
		return
	}

	logger.Info("Webhook配信完了",
		zap.String("delivery_id", e.DeliveryID),
		zap.String("booking_id", e.BookingID),
		zap.String("previous_status", e.PreviousStatus),
		zap.String("current_status", e.CurrentStatus),
	)
	n.record("delivered")
}

func (n *Notifier) record(status string) {
	if n.metrics != nil {
		n.metrics.WebhookDeliveriesTotal.WithLabelValues(status).Inc()
	}
}
