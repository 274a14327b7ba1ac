package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notification-Kanäle der beiden Ergebnis-Tabellen.
const (
	ChannelContractChanges = "contract_analysis_changes"
	ChannelResearchChanges = "legal_research_changes"
)

// ChangeListener lauscht über eine dedizierte Postgres-Verbindung per
// LISTEN/NOTIFY auf Zeilen-Ereignisse in beiden Ergebnis-Tabellen. Der
// Payload wird ignoriert; jede Meldung dient ausschließlich als Trigger,
// den kompletten Snapshot neu zu laden.
type ChangeListener struct {
	dsn      string
	logger   *zap.Logger
	onChange func(channel string)
}

func NewChangeListener(dsn string, logger *zap.Logger, onChange func(channel string)) *ChangeListener {
	return &ChangeListener{dsn: dsn, logger: logger, onChange: onChange}
}

// Run blockiert, bis der Kontext endet. Verbindungsabbrüche führen zu einem
// Reconnect mit wachsendem Backoff.
func (l *ChangeListener) Run(ctx context.Context) {
	backoff := time.Second
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn("change listener disconnected",
			zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (l *ChangeListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	for _, channel := range []string{ChannelContractChanges, ChannelResearchChanges} {
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return err
		}
	}
	l.logger.Info("listening for document table changes")

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.logger.Debug("change notification received",
			zap.String("channel", notification.Channel),
			zap.String("operation", notification.Payload),
		)
		l.onChange(notification.Channel)
	}
}

// InstallChangeTriggers legt die pg_notify-Trigger auf beiden Tabellen an
// (idempotent). Ohne die Trigger bleibt der Listener stumm und nur der
// Cron-Refresh hält den Snapshot aktuell.
func InstallChangeTriggers(db *gorm.DB) error {
	statements := []string{
		`CREATE OR REPLACE FUNCTION notify_document_change() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify(TG_ARGV[0], TG_OP);
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS contract_analysis_notify ON contract_analysis`,
		`CREATE TRIGGER contract_analysis_notify
			AFTER INSERT OR UPDATE OR DELETE ON contract_analysis
			FOR EACH ROW EXECUTE FUNCTION notify_document_change('` + ChannelContractChanges + `')`,
		`DROP TRIGGER IF EXISTS legal_research_notify ON legal_research`,
		`CREATE TRIGGER legal_research_notify
			AFTER INSERT OR UPDATE OR DELETE ON legal_research
			FOR EACH ROW EXECUTE FUNCTION notify_document_change('` + ChannelResearchChanges + `')`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
