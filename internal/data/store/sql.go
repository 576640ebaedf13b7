package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/neurobridge-tutor/internal/domain"
	"github.com/yungbote/neurobridge-tutor/internal/platform/logger"
)

// SessionRow is the tutor_session table. Profile and state are JSON columns.
type SessionRow struct {
	ID             string         `gorm:"primaryKey;size:36"`
	CatalogVersion string         `gorm:"size:64"`
	Profile        datatypes.JSON `gorm:"not null"`
	State          datatypes.JSON `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time `gorm:"index"`
}

func (SessionRow) TableName() string { return "tutor_session" }

type SQL struct {
	db  *gorm.DB
	log *logger.Logger
}

// OpenSQL opens driver ("sqlite" or "postgres") at dsn and migrates the session table.
func OpenSQL(driver, dsn string, log *logger.Logger) (*SQL, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		if dsn == "" {
			dsn = "file:tutor.db?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres dsn required")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown sql driver %q", driver)
	}

	gormLog := gormLogger.New(
		stdLogger(),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, unavailable("open "+driver, err)
	}
	return NewSQL(db, log)
}

func stdLogger() *log.Logger {
	return log.New(os.Stderr, "\r\n", log.LstdFlags)
}

// NewSQL migrates the session table on db.
func NewSQL(db *gorm.DB, log *logger.Logger) (*SQL, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := db.AutoMigrate(&SessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate tutor_session: %w", err)
	}
	return &SQL{db: db, log: log.With("repo", "SessionRepo")}, nil
}

func (s *SQL) DB() *gorm.DB { return s.db }

func (s *SQL) Load(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var row SessionRow
	err := s.db.WithContext(ctx).Where("id = ?", id.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.Warn("session load failed", "session_id", id.String(), "error", err)
		return nil, unavailable("sql load", err)
	}
	return rowToSession(&row)
}

func (s *SQL) Save(ctx context.Context, sess *domain.Session) error {
	if err := validate(sess); err != nil {
		return err
	}
	row, err := sessionToRow(sess)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"catalog_version", "profile", "state", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		s.log.Warn("session save failed", "session_id", sess.ID.String(), "error", err)
		return unavailable("sql save", err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&SessionRow{}).Error; err != nil {
		return unavailable("sql delete", err)
	}
	return nil
}

// UpdatedSince lists session ids saved at or after t, newest first.
func (s *SQL) UpdatedSince(ctx context.Context, t time.Time, limit int) ([]uuid.UUID, error) {
	var ids []string
	q := s.db.WithContext(ctx).Model(&SessionRow{}).Where("updated_at >= ?", t.UTC()).Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, unavailable("sql list", err)
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func sessionToRow(s *domain.Session) (*SessionRow, error) {
	profile, err := json.Marshal(s.Profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	state, err := json.Marshal(s.State)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = updated
	}
	return &SessionRow{
		ID:             s.ID.String(),
		CatalogVersion: s.CatalogVersion,
		Profile:        datatypes.JSON(profile),
		State:          datatypes.JSON(state),
		CreatedAt:      created.UTC(),
		UpdatedAt:      updated.UTC(),
	}, nil
}

func rowToSession(row *SessionRow) (*domain.Session, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("session row id %q: %w", row.ID, err)
	}
	out := &domain.Session{
		ID:             id,
		CatalogVersion: row.CatalogVersion,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if len(row.Profile) > 0 && string(row.Profile) != "null" {
		out.Profile = &domain.LearnerProfile{}
		if err := json.Unmarshal(row.Profile, out.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	if len(row.State) == 0 || string(row.State) == "null" {
		return nil, fmt.Errorf("%w: session %s has no state", ErrInvalid, row.ID)
	}
	out.State = &domain.LearnerState{}
	if err := json.Unmarshal(row.State, out.State); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	out.State.EnsureMaps()
	return out, nil
}
