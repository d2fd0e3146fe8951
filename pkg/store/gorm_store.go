package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"researchduo/pkg/domain"
)

const migrateLockID int64 = 51807421

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &ResearchModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'research_reports'
					AND constraint_name = 'research_reports_single_owner'
				) THEN
					ALTER TABLE research_reports
					ADD CONSTRAINT research_reports_single_owner
					CHECK ((user_id IS NULL) <> (guest_id IS NULL));
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'research_reports'
					AND constraint_name = 'research_reports_step_range'
				) THEN
					ALTER TABLE research_reports
					ADD CONSTRAINT research_reports_step_range
					CHECK (step BETWEEN 1 AND 3);
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure research constraints: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateUser registers a user; usernames are unique.
func (s *GormStore) CreateUser(ctx context.Context, u domain.User) error {
	model := userToModel(u)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return err
	}
	return nil
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateRecord inserts a new research record at step 1.
func (s *GormStore) CreateRecord(ctx context.Context, topic, rawReport string, owner domain.Identity) (domain.ResearchRecord, error) {
	if !owner.Valid() {
		return domain.ResearchRecord{}, ErrInvalidOwner
	}
	model := ResearchModel{
		ID:        uuid.NewString(),
		Topic:     topic,
		RawReport: rawReport,
		Step:      int(domain.StepRaw),
		CreatedAt: time.Now().UTC(),
	}
	id := owner.ID
	if owner.IsGuest() {
		model.GuestID = &id
	} else {
		model.UserID = &id
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.ResearchRecord{}, err
	}
	return recordFromModel(model), nil
}

// GetRecord retrieves a research record by id.
func (s *GormStore) GetRecord(ctx context.Context, id string) (domain.ResearchRecord, bool, error) {
	var model ResearchModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ResearchRecord{}, false, nil
		}
		return domain.ResearchRecord{}, false, err
	}
	return recordFromModel(model), true, nil
}

// UpdateRecord applies patch in a single UPDATE. The step column is only ever
// raised, so concurrent writers cannot move a record backwards.
func (s *GormStore) UpdateRecord(ctx context.Context, id string, patch domain.RecordPatch) (domain.ResearchRecord, error) {
	updates := recordUpdates(patch)
	var model ResearchModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			res := tx.Model(&ResearchModel{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrRecordNotFound
			}
		}
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.ResearchRecord{}, err
	}
	return recordFromModel(model), nil
}

// recordUpdates maps a patch to column updates. step goes through GREATEST
// so it never moves backwards.
func recordUpdates(patch domain.RecordPatch) map[string]any {
	updates := map[string]any{}
	if patch.RefinedReport != nil {
		updates["refined_report"] = *patch.RefinedReport
	}
	if patch.FinalPost != nil {
		updates["final_post"] = *patch.FinalPost
	}
	if patch.Step.Valid() {
		updates["step"] = gorm.Expr("GREATEST(step, ?)", int(patch.Step))
	}
	return updates
}

// ListRecordsByOwner returns the owner's records, newest first.
func (s *GormStore) ListRecordsByOwner(ctx context.Context, owner domain.Identity) ([]domain.ResearchRecord, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}
	column := "user_id"
	if owner.IsGuest() {
		column = "guest_id"
	}
	var models []ResearchModel
	if err := s.db.WithContext(ctx).
		Where(column+" = ?", owner.ID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ResearchRecord, 0, len(models))
	for _, m := range models {
		res = append(res, recordFromModel(m))
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     strings.TrimSpace(u.Username),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func recordFromModel(m ResearchModel) domain.ResearchRecord {
	rec := domain.ResearchRecord{
		ID:            m.ID,
		Topic:         m.Topic,
		RawReport:     m.RawReport,
		RefinedReport: m.RefinedReport,
		FinalPost:     m.FinalPost,
		Step:          domain.Step(m.Step),
		CreatedAt:     m.CreatedAt,
	}
	if m.UserID != nil {
		rec.UserID = *m.UserID
	}
	if m.GuestID != nil {
		rec.GuestID = *m.GuestID
	}
	return rec
}
