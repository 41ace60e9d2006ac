package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/envutil"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

// DemoTicket is one seed row for the ticket-clustering demo. Rows are keyed
// by (tenant_id, external_ref) so reseeding the same tenant is idempotent.
type DemoTicket struct {
	ID          uint   `gorm:"primaryKey"`
	TenantID    string `gorm:"index:idx_demo_tickets_tenant_ref,unique"`
	ExternalRef string `gorm:"index:idx_demo_tickets_tenant_ref,unique"`
	Subject     string
	Body        string
	Category    string
	CreatedAt   time.Time
}

type TicketStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTicketStore(log *logger.Logger) (*TicketStore, error) {
	serviceLog := log.With("service", "TicketStore")

	host := envutil.Str("POSTGRES_HOST", "localhost")
	port := envutil.Str("POSTGRES_PORT", "5432")
	user := envutil.Str("POSTGRES_USER", "postgres")
	password := envutil.Str("POSTGRES_PASSWORD", "")
	name := envutil.Str("POSTGRES_NAME", "rita_simulator")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := db.AutoMigrate(&DemoTicket{}); err != nil {
		return nil, fmt.Errorf("migrate demo tickets: %w", err)
	}
	return &TicketStore{db: db, log: serviceLog}, nil
}

// demoTicketTemplates are cycled when seeding; categories intentionally
// overlap so the clustering demo has something to find.
var demoTicketTemplates = []DemoTicket{
	{ExternalRef: "seed-vpn-1", Subject: "Cannot connect to VPN", Body: "VPN client times out when connecting from home network.", Category: "network"},
	{ExternalRef: "seed-vpn-2", Subject: "VPN drops every few minutes", Body: "Connection is established but drops repeatedly during calls.", Category: "network"},
	{ExternalRef: "seed-pwd-1", Subject: "Password reset not working", Body: "Self-service reset email never arrives.", Category: "account"},
	{ExternalRef: "seed-pwd-2", Subject: "Locked out after password change", Body: "Changed password yesterday, now all logins fail.", Category: "account"},
	{ExternalRef: "seed-mail-1", Subject: "Outlook not syncing", Body: "New mail stopped appearing since this morning.", Category: "email"},
	{ExternalRef: "seed-mail-2", Subject: "Shared mailbox missing", Body: "The support shared mailbox disappeared from the sidebar.", Category: "email"},
	{ExternalRef: "seed-hw-1", Subject: "Laptop battery draining fast", Body: "Battery lasts under an hour after the last update.", Category: "hardware"},
	{ExternalRef: "seed-hw-2", Subject: "External monitor not detected", Body: "Docking station no longer detects the second monitor.", Category: "hardware"},
}

// SeedDemoTickets inserts count demo rows for the tenant (all templates when
// count <= 0), skipping rows that already exist.
func (s *TicketStore) SeedDemoTickets(ctx context.Context, tenantID string, count int) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("ticket store unavailable")
	}
	if count <= 0 || count > len(demoTicketTemplates) {
		count = len(demoTicketTemplates)
	}

	inserted := 0
	for _, tpl := range demoTicketTemplates[:count] {
		row := tpl
		row.TenantID = tenantID
		res := s.db.WithContext(ctx).
			Where("tenant_id = ? AND external_ref = ?", tenantID, row.ExternalRef).
			FirstOrCreate(&row)
		if res.Error != nil {
			return inserted, fmt.Errorf("seed ticket %s: %w", row.ExternalRef, res.Error)
		}
		if res.RowsAffected > 0 {
			inserted++
		}
	}
	s.log.Info("demo tickets seeded", "tenant_id", tenantID, "inserted", inserted)
	return inserted, nil
}
