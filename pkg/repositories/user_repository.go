package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	usersTable = "users"

	uniqueViolation = "23505"
)

var userStruct = database.NewStruct(new(models.User))

// UserRepository handles database operations for users
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DB, logger ectologger.Logger) *UserRepository {
	return &UserRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create inserts a user. The email is stored lower-cased; a duplicate is a 400.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.Create")
	defer span.End()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	ib := database.NewInsertBuilder()
	ib.InsertInto(usersTable).
		Cols("id", "email", "name", "password_hash", "created_at").
		Values(user.ID, user.Email, user.Name, user.PasswordHash, sqlbuilder.Raw("NOW()")).
		Returning("created_at")

	query, args := ib.Build()
	err := r.DB().QueryRowContext(ctx, query, args...).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return BadRequest("An account with this email already exists.")
		}
		return r.internal(ctx, err, "create user", map[string]any{"user_id": user.ID})
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id": user.ID,
	}).Debugf("Created %s", usersTable)
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.GetByID")
	defer span.End()

	sb := userStruct.SelectFrom(usersTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var user models.User
	if err := r.getOne(ctx, &user, query, args, NotFound("user %s does not exist", id), "get user by ID"); err != nil {
		return nil, err
	}

	return &user, nil
}

// GetByEmail retrieves a user by case-insensitive email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.GetByEmail")
	defer span.End()

	sb := userStruct.SelectFrom(usersTable)
	sb.Where("LOWER(email) = " + sb.Var(strings.ToLower(strings.TrimSpace(email))))

	query, args := sb.Build()
	var user models.User
	if err := r.getOne(ctx, &user, query, args, NotFound("user with email %s does not exist", email), "get user by email"); err != nil {
		return nil, err
	}

	return &user, nil
}
