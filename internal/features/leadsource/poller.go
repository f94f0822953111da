package leadsource

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go-leadflow/internal/config"
	"go-leadflow/internal/features/engine"
	"go-leadflow/internal/features/lead"
	"go-leadflow/internal/features/rule"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	pollBatchSize = 200
	leadSource    = "external"
)

// Poller imports leads from an external Postgres table (a marketing site or
// landing-page backend) and forwards lead_created events into the engine.
// It keeps a created_at high-water mark so each row is imported once.
type Poller struct {
	cfg      *config.Config
	leadRepo lead.LeadRepository
	engine   engine.EngineService
	logger   *zap.Logger

	db        *sql.DB
	interval  time.Duration
	highWater time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewPoller(cfg *config.Config, leadRepo lead.LeadRepository, engineService engine.EngineService, logger *zap.Logger) *Poller {
	interval := time.Duration(cfg.LeadSourcePollSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		cfg:      cfg,
		leadRepo: leadRepo,
		engine:   engineService,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Enabled reports whether an external lead source is configured.
func (p *Poller) Enabled() bool {
	return p.cfg.LeadSourceDSN != ""
}

func (p *Poller) Start(ctx context.Context) error {
	if !p.Enabled() {
		p.logger.Info("Lead source poller disabled, no DSN configured")
		return nil
	}

	db, err := sql.Open("postgres", p.cfg.LeadSourceDSN)
	if err != nil {
		return fmt.Errorf("failed to open lead source connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to reach lead source: %w", err)
	}
	p.db = db
	if err := p.resumeHighWater(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to resume lead source high-water mark: %w", err)
	}

	p.logger.Info("Starting lead source poller",
		zap.String("table", p.cfg.LeadSourceTable),
		zap.Duration("interval", p.interval))

	p.wg.Add(1)
	go p.loop()
	return nil
}

// resumeHighWater restores the created_at cursor from the newest imported
// lead, so a restart continues where the previous process stopped instead of
// re-reading rows it already delivered. A fresh install backfills one day.
func (p *Poller) resumeHighWater(ctx context.Context) error {
	last, err := p.leadRepo.LatestCreatedAt(ctx, leadSource)
	if err != nil {
		return err
	}
	if last.IsZero() {
		last = time.Now().Add(-24 * time.Hour)
	}
	p.highWater = last
	return nil
}

func (p *Poller) Stop() error {
	close(p.stop)
	p.wg.Wait()
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *Poller) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.poll(ctx); err != nil {
				p.logger.Error("Lead source poll failed", zap.Error(err))
			}
			cancel()
		}
	}
}

type sourceRow struct {
	ID        int64
	Name      string
	Email     sql.NullString
	Phone     sql.NullString
	Company   sql.NullString
	CreatedAt time.Time
}

func (p *Poller) poll(ctx context.Context) error {
	query := fmt.Sprintf(
		`SELECT id, name, email, phone, company, created_at
		 FROM %s
		 WHERE created_at > $1
		 ORDER BY created_at ASC
		 LIMIT %d`,
		p.cfg.LeadSourceTable, pollBatchSize)

	rows, err := p.db.QueryContext(ctx, query, p.highWater)
	if err != nil {
		return fmt.Errorf("failed to query lead source: %w", err)
	}
	defer rows.Close()

	imported := 0
	for rows.Next() {
		var row sourceRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Email, &row.Phone, &row.Company, &row.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan lead source row: %w", err)
		}
		if err := p.importRow(ctx, row); err != nil {
			p.logger.Error("Failed to import lead",
				zap.Int64("source_id", row.ID), zap.Error(err))
			continue
		}
		if row.CreatedAt.After(p.highWater) {
			p.highWater = row.CreatedAt
		}
		imported++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lead source cursor failed: %w", err)
	}

	if imported > 0 {
		p.logger.Info("Imported leads from external source", zap.Int("count", imported))
	}
	return nil
}

func (p *Poller) importRow(ctx context.Context, row sourceRow) error {
	l := &lead.Lead{
		Name:      row.Name,
		Email:     row.Email.String,
		Phone:     row.Phone.String,
		Company:   row.Company.String,
		Status:    "new",
		Source:    leadSource,
		CreatedAt: row.CreatedAt,
		UpdatedAt: time.Now(),
	}
	// Upsert hands back the stored document, so the event subject carries the
	// canonical lead id even when the email already existed.
	if err := p.leadRepo.Upsert(ctx, l); err != nil {
		return err
	}

	return p.engine.HandleEvent(ctx, engine.Event{
		ID:         fmt.Sprintf("leadsource:%d", row.ID),
		Kind:       rule.TriggerLeadCreated,
		Subject:    l.AsSubject(),
		OccurredAt: row.CreatedAt,
	})
}
