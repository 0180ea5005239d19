package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/access"
	"github.com/trezcool/kampus/core/user"
)

const userColumns = `id, name, email, role, phone, bio, is_active, password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string      `db:"id"`
	Name         null.String `db:"name"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	Phone        null.String `db:"phone"`
	Bio          null.String `db:"bio"`
	IsActive     null.Bool   `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name.String,
		Email:        row.Email,
		Role:         access.Role(row.Role),
		Phone:        row.Phone.String,
		Bio:          row.Bio.String,
		IsActive:     row.IsActive.Ptr(),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
		LastLogin:    row.LastLogin.Time,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	excluded := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded = append(excluded, usr.ID)
	}

	var exists bool
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &exists,
		`SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1 AND id <> ALL($2))`,
		email, pq.Array(excluded),
	)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	_, err := ext(repo.db, exec).ExecContext(ctx,
		`INSERT INTO "user" (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		usr.ID, nullString(usr.Name), usr.Email, usr.Role, nullString(usr.Phone), nullString(usr.Bio),
		usr.IsActive, usr.PasswordHash, nullTime(usr.CreatedAt), nullTime(usr.UpdatedAt), nullTime(usr.LastLogin),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

var userOrderingFields = map[string]string{
	"name":       "name",
	"email":      "email",
	"created_at": "created_at",
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	q := strings.Builder{}
	q.WriteString(`SELECT ` + userColumns + ` FROM "user"`)
	var args []interface{}

	if filter != nil && !filter.IsEmpty() {
		var clauses []string
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			n := len(args)
			clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", n, n))
		}
		if filter.Role != "" {
			args = append(args, filter.Role)
			clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			clauses = append(clauses, fmt.Sprintf("is_active = $%d", len(args)))
		}
		if !filter.CreatedFrom.IsZero() {
			args = append(args, filter.CreatedFrom)
			clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
		}
		if !filter.CreatedTo.IsZero() {
			args = append(args, filter.CreatedTo)
			clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
		}
		q.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}

	// ordering fields are whitelisted; anything else is dropped
	var orderBy []string
	for _, ord := range ordering {
		if field, ok := userOrderingFields[ord.Field]; ok {
			orderBy = append(orderBy, core.DBOrdering{Field: field, Ascending: ord.Ascending}.String())
		}
	}
	orderBy = append(orderBy, "created_at ASC", "id ASC")
	q.WriteString(" ORDER BY " + strings.Join(orderBy, ", "))

	var rows []userRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q.String(), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, len(rows))
	for i, row := range rows {
		users[i] = row.toUser()
	}
	return users, nil
}

func (repo *userRepository) getUser(ctx context.Context, exec []core.DBExecutor, where string, args ...interface{}) (user.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, `SELECT `+userColumns+` FROM "user" WHERE `+where, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	return repo.getUser(ctx, exec, "id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	return repo.getUser(ctx, exec, "email = $1", email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool, exec ...core.DBExecutor) (user.User, error) {
	var pwdHash interface{}
	if usr.PasswordHash != nil {
		pwdHash = usr.PasswordHash
	}

	var row userRow
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &row,
		`UPDATE "user" SET
			name          = COALESCE(NULLIF($2, ''), name),
			email         = COALESCE(NULLIF($3, ''), email),
			phone         = COALESCE(NULLIF($4, ''), phone),
			bio           = COALESCE(NULLIF($5, ''), bio),
			password_hash = COALESCE($6, password_hash),
			last_login    = COALESCE($7, last_login),
			updated_at    = COALESCE($8, updated_at),
			is_active     = COALESCE($9, is_active)
		 WHERE id = $1
		 RETURNING `+userColumns,
		usr.ID, usr.Name, usr.Email, usr.Phone, usr.Bio,
		pwdHash, nullTime(usr.LastLogin), nullTime(usr.UpdatedAt), isActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID != "" {
		updated, err := repo.UpdateUser(ctx, usr, usr.IsActive, exec...)
		if err == nil {
			return updated, nil
		}
		if err != user.ErrNotFound {
			return user.User{}, err
		}
	}
	return repo.CreateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	_, err := ext(repo.db, exec).ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting users")
}

func (repo *userRepository) CountUsers(ctx context.Context, role access.Role, exec ...core.DBExecutor) (int, error) {
	q := `SELECT COUNT(*) FROM "user"`
	var args []interface{}
	if role != "" {
		q += " WHERE role = $1"
		args = append(args, role)
	}

	var count int
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &count, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return count, nil
}
