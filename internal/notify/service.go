package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"guss/internal/logger"
	"guss/internal/metrics"
)

const (
	queueKey  = "notifications"
	failedKey = "notifications:failed"

	fcmEndpoint = "https://fcm.googleapis.com/fcm/send"

	maxTries = 3
)

type PushJob struct {
	DeviceToken string    `json:"device_token"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Tries       int       `json:"tries"`
	Created     time.Time `json:"created"`
}

// Service queues push notifications in redis and delivers them through the
// FCM HTTP API from a background worker.
type Service struct {
	redis     *redis.Client
	serverKey string
	client    *http.Client
}

func New(redisAddr, fcmServerKey string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		serverKey: fcmServerKey,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Service) queue(ctx context.Context, job PushJob) error {
	job.Created = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue %s push: %v", job.Type, err)
		return err
	}

	logger.Infof("Push queued: %s", job.Type)
	return nil
}

func (s *Service) QueueReservationConfirmed(ctx context.Context, deviceToken, gymName string, visitTime time.Time) error {
	return s.queue(ctx, PushJob{
		DeviceToken: deviceToken,
		Type:        "reservation_confirmed",
		Title:       "Reservation confirmed",
		Body:        fmt.Sprintf("Your visit to %s at %s is confirmed. Show your QR code at the entrance.", gymName, visitTime.Format("Jan 2, 15:04")),
	})
}

func (s *Service) QueueReservationCancelled(ctx context.Context, deviceToken, gymName string) error {
	return s.queue(ctx, PushJob{
		DeviceToken: deviceToken,
		Type:        "reservation_cancelled",
		Title:       "Reservation cancelled",
		Body:        fmt.Sprintf("Your reservation at %s has been cancelled.", gymName),
	})
}

// Start runs the delivery loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job PushJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification payload: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(ctx, job); err != nil {
		logger.Errorf("Failed to send %s push (attempt %d): %v", job.Type, job.Tries, err)
		metrics.RecordNotification(job.Type, "error")

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordNotification(job.Type, "sent")
	logger.Infof("Push sent: %s", job.Type)
}

func (s *Service) sendNow(ctx context.Context, job PushJob) error {
	if s.serverKey == "" {
		// No FCM credentials configured (dev environments); treat as sent.
		logger.Debugf("FCM disabled, dropping %s push", job.Type)
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"to": job.DeviceToken,
		"notification": map[string]string{
			"title": job.Title,
			"body":  job.Body,
		},
		"data": map[string]string{
			"type": job.Type,
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fcmEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("fcm returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *Service) saveFailed(job PushJob, sendErr error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": sendErr.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, data)
	logger.Errorf("Push moved to failed queue after %d attempts: %s", job.Tries, job.Type)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.NotificationQueueLength.Set(float64(length))
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
