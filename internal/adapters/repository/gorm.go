package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	gormMysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/codevoice/internal/domain/model"
)

// MySQL error numbers mapped to sentinel kinds.
const (
	mysqlDuplicateEntry = 1062
	mysqlNoReferenced   = 1452
)

// GormStore persists the interview schema through gorm.
type GormStore struct {
	db   *gorm.DB
	opts options
}

var _ Store = (*GormStore)(nil)

// OpenMySQL opens a gorm connection for dsn.
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(gormMysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return db, nil
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	return &GormStore{db: db, opts: newOptions(opts)}
}

// Migrate creates or updates the schema, including the cascade and
// SET NULL foreign keys on turns.
func (s *GormStore) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&model.Question{},
		&model.Candidate{},
		&model.Session{},
		&model.Turn{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) CreateQuestion(ctx context.Context, q *model.Question) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.opts.now()
	}
	return mapErr(s.db.WithContext(ctx).Create(q).Error)
}

func (s *GormStore) DeleteQuestion(ctx context.Context, id string) error {
	return mapErr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Turn{}).Where("question_id = ?", id).Update("question_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Question{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	}))
}

func (s *GormStore) ListQuestions(ctx context.Context, f QuestionFilter) ([]model.Question, error) {
	var out []model.Question
	db := s.db.WithContext(ctx).Model(&model.Question{})
	if f.Difficulty != "" {
		db = db.Where("difficulty = ?", f.Difficulty)
	}
	if topic := strings.ToLower(strings.TrimSpace(f.Topic)); topic != "" {
		db = db.Where("LOWER(topic) LIKE ?", "%"+topic+"%")
	}
	if len(f.Exclude) > 0 {
		db = db.Where("id NOT IN ?", f.Exclude)
	}
	err := db.Order("created_at ASC, id ASC").Find(&out).Error
	return out, mapErr(err)
}

func (s *GormStore) CountQuestions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Question{}).Count(&count).Error
	return count, mapErr(err)
}

func (s *GormStore) CreateCandidate(ctx context.Context, c *model.Candidate) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.opts.now()
	}
	return mapErr(s.db.WithContext(ctx).Create(c).Error)
}

func (s *GormStore) GetCandidate(ctx context.Context, id string) (model.Candidate, error) {
	var c model.Candidate
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	return c, mapErr(err)
}

func (s *GormStore) FindCandidateByUsername(ctx context.Context, username string) (model.Candidate, error) {
	var c model.Candidate
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&c).Error
	return c, mapErr(err)
}

func (s *GormStore) CreateSession(ctx context.Context, sess *model.Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = s.opts.now()
	}
	return mapErr(s.db.WithContext(ctx).Omit(clause.Associations).Create(sess).Error)
}

func (s *GormStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	var sess model.Session
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	return sess, mapErr(err)
}

func (s *GormStore) LockSession(ctx context.Context, id string) (model.Session, error) {
	var sess model.Session
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&sess).Error
	return sess, mapErr(err)
}

func (s *GormStore) UpdateSession(ctx context.Context, sess *model.Session) error {
	err := s.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ?", sess.ID).
		Updates(map[string]any{
			"status":      sess.Status,
			"ended_at":    sess.EndedAt,
			"total_score": sess.TotalScore,
		}).Error
	return mapErr(err)
}

func (s *GormStore) AppendTurn(ctx context.Context, t *model.Turn) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.opts.now()
	}
	return mapErr(s.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error)
}

func (s *GormStore) ListTurns(ctx context.Context, sessionID string) ([]model.Turn, error) {
	var out []model.Turn
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, seq ASC").
		Find(&out).Error
	if err != nil {
		return nil, mapErr(err)
	}
	if len(out) == 0 {
		if _, err := s.GetSession(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *GormStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, opts: s.opts})
	})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %s", ErrDuplicate, myErr.Message)
		case mysqlNoReferenced:
			return fmt.Errorf("%w: %s", ErrNotFound, myErr.Message)
		}
	}
	return fmt.Errorf("repository: %w", err)
}
