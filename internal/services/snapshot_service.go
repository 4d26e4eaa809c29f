package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	appconfig "booking-backend/internal/config"
	"booking-backend/internal/models"
	"booking-backend/internal/timeutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// LedgerExporter is the read surface the snapshot scheduler needs
type LedgerExporter interface {
	EntriesSince(ctx context.Context, lastID int) ([]models.LedgerEntry, error)
}

// SnapshotService exports the full ledger as CSV to S3-compatible object
// storage on a fixed schedule. Snapshots are for disaster recovery and
// offline reconciliation; the database remains the source of truth.
type SnapshotService struct {
	cfg      *appconfig.Config
	exporter LedgerExporter

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
}

func NewSnapshotService(cfg *appconfig.Config, exporter LedgerExporter) *SnapshotService {
	return &SnapshotService{cfg: cfg, exporter: exporter}
}

// Start launches the snapshot scheduler. No-op when snapshot storage is not
// configured.
func (s *SnapshotService) Start(interval time.Duration) {
	if !s.cfg.Snapshot.Enabled {
		log.Println("[Snapshot] Object storage not configured, scheduler disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(interval)
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.runSnapshot()
			case <-s.done:
				return
			}
		}
	}()
	log.Printf("[Snapshot] Scheduler started, interval %s", interval)
}

// Stop halts the snapshot scheduler
func (s *SnapshotService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.done)
	s.ticker = nil
}

func (s *SnapshotService) runSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := s.ExportNow(ctx); err != nil {
		log.Printf("[Snapshot] Export failed: %v", err)
	}
}

// ExportNow exports the full ledger immediately
func (s *SnapshotService) ExportNow(ctx context.Context) error {
	entries, err := s.exporter.EntriesSince(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to read ledger for snapshot: %w", err)
	}

	data, err := encodeLedgerCSV(entries)
	if err != nil {
		return err
	}

	client, err := s.newClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to configure snapshot client: %w", err)
	}

	key := fmt.Sprintf("ledger/ledger_%s.csv", timeutil.Now().Format("20060102_150405"))
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Snapshot.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}

	log.Printf("[Snapshot] Uploaded %s (%d entries, %d bytes)", key, len(entries), len(data))
	return nil
}

func (s *SnapshotService) newClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.Snapshot.AccessKey,
			s.cfg.Snapshot.SecretKey,
			"",
		)),
		awsconfig.WithRegion(s.cfg.Snapshot.Region),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.cfg.Snapshot.Endpoint)
	}), nil
}

func encodeLedgerCSV(entries []models.LedgerEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"id", "booking_id", "entry_type", "amount",
		"description", "collected_by", "payment_method",
		"refund_id", "refund_state", "reason", "estimated_days",
		"requested_at", "processed_at", "completed_at", "failure_detail",
		"created_at",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	fmtTime := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(time.RFC3339)
	}

	for _, e := range entries {
		record := []string{
			strconv.Itoa(e.ID),
			strconv.Itoa(e.BookingID),
			string(e.EntryType),
			strconv.FormatFloat(e.Amount, 'f', 2, 64),
			e.Description,
			e.CollectedBy,
			string(e.PaymentMethod),
			e.RefundID,
			string(e.RefundState),
			e.Reason,
			strconv.Itoa(e.EstimatedDays),
			fmtTime(e.RequestedAt),
			fmtTime(e.ProcessedAt),
			fmtTime(e.CompletedAt),
			e.FailureDetail,
			e.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
