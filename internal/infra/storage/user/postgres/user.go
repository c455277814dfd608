// Package postgres persists the user aggregate in PostgreSQL. The repository
// joins the transaction carried by the context, so entity writes commit
// together with their outbox records.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cschaible/go-microservices-kafka/internal/domain/user"
	"github.com/cschaible/go-microservices-kafka/internal/infra/storage"
	pgstore "github.com/cschaible/go-microservices-kafka/internal/infra/storage/postgres"
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository on PostgreSQL.
type UserRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewUserRepository creates a repository over the given pool.
func NewUserRepository(pool *pgxpool.Pool, tracer trace.Tracer) *UserRepository {
	return &UserRepository{pool: pool, tracer: tracer}
}

// Create inserts the user and its phone numbers, assigning u.ID.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.create_user", []attribute.KeyValue{
		attribute.String("user_identifier", u.Identifier.String()),
	}, func(ctx context.Context) error {
		db := pgstore.DBFrom(ctx, r.pool)

		err := db.QueryRow(ctx, `
			INSERT INTO users (identifier, version, name, email, country)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			u.Identifier, u.Version, u.Name, u.Email, string(u.Country),
		).Scan(&u.ID)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		return r.insertPhoneNumbers(ctx, db, u.ID, u.PhoneNumbers)
	})
}

// Update replaces the stored user if the persisted version matches u.Version
// and increments the version in the same statement. Phone numbers are
// replaced wholesale.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.update_user", []attribute.KeyValue{
		attribute.String("user_identifier", u.Identifier.String()),
		attribute.Int64("expected_version", u.Version),
	}, func(ctx context.Context) error {
		db := pgstore.DBFrom(ctx, r.pool)

		tag, err := db.Exec(ctx, `
			UPDATE users
			SET name = $1, email = $2, country = $3, version = version + 1
			WHERE identifier = $4 AND version = $5`,
			u.Name, u.Email, string(u.Country), u.Identifier, u.Version,
		)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Distinguish a stale version from a missing user.
			var exists bool
			err := db.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM users WHERE identifier = $1)`, u.Identifier,
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check user existence: %w", err)
			}
			if !exists {
				return user.ErrNotFound
			}
			return user.ErrVersionConflict
		}
		u.Version++

		if _, err := db.Exec(ctx, `DELETE FROM phone_numbers WHERE user_id = $1`, u.ID); err != nil {
			return fmt.Errorf("delete phone numbers: %w", err)
		}
		return r.insertPhoneNumbers(ctx, db, u.ID, u.PhoneNumbers)
	})
}

// FindByIdentifier returns the user with its phone numbers or
// user.ErrNotFound.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier uuid.UUID) (*user.User, error) {
	var found *user.User
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.find_user", []attribute.KeyValue{
		attribute.String("user_identifier", identifier.String()),
	}, func(ctx context.Context) error {
		db := pgstore.DBFrom(ctx, r.pool)

		var u user.User
		var country string
		err := db.QueryRow(ctx, `
			SELECT id, identifier, version, name, email, country
			FROM users
			WHERE identifier = $1`,
			identifier,
		).Scan(&u.ID, &u.Identifier, &u.Version, &u.Name, &u.Email, &country)
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		u.Country = user.IsoCountryCode(country)

		numbers, err := r.findPhoneNumbers(ctx, db, []int64{u.ID})
		if err != nil {
			return err
		}
		u.PhoneNumbers = numbers[u.ID]

		found = &u
		return nil
	})
	return found, err
}

// FindAll lists users with their phone numbers in insertion order.
func (r *UserRepository) FindAll(ctx context.Context) ([]user.User, error) {
	var found []user.User
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.find_users", nil,
		func(ctx context.Context) error {
			db := pgstore.DBFrom(ctx, r.pool)

			rows, err := db.Query(ctx, `
				SELECT id, identifier, version, name, email, country
				FROM users
				ORDER BY id`)
			if err != nil {
				return fmt.Errorf("query users: %w", err)
			}
			defer rows.Close()

			var users []user.User
			var ids []int64
			for rows.Next() {
				var u user.User
				var country string
				if err := rows.Scan(&u.ID, &u.Identifier, &u.Version, &u.Name, &u.Email, &country); err != nil {
					return fmt.Errorf("scan user: %w", err)
				}
				u.Country = user.IsoCountryCode(country)
				users = append(users, u)
				ids = append(ids, u.ID)
			}
			if err := rows.Err(); err != nil {
				return fmt.Errorf("iterate users: %w", err)
			}
			rows.Close()

			numbers, err := r.findPhoneNumbers(ctx, db, ids)
			if err != nil {
				return err
			}
			for i := range users {
				users[i].PhoneNumbers = numbers[users[i].ID]
			}

			found = users
			return nil
		})
	return found, err
}

func (r *UserRepository) insertPhoneNumbers(ctx context.Context, db pgstore.DB, userID int64, numbers []user.PhoneNumber) error {
	for _, n := range numbers {
		_, err := db.Exec(ctx, `
			INSERT INTO phone_numbers (user_id, country_code, phone_number_type, call_number)
			VALUES ($1, $2, $3, $4)`,
			userID, n.CountryCode, string(n.Type), n.CallNumber,
		)
		if err != nil {
			return fmt.Errorf("insert phone number: %w", err)
		}
	}
	return nil
}

func (r *UserRepository) findPhoneNumbers(ctx context.Context, db pgstore.DB, userIDs []int64) (map[int64][]user.PhoneNumber, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := db.Query(ctx, `
		SELECT user_id, country_code, phone_number_type, call_number
		FROM phone_numbers
		WHERE user_id = ANY($1)
		ORDER BY id`,
		userIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query phone numbers: %w", err)
	}
	defer rows.Close()

	numbers := make(map[int64][]user.PhoneNumber)
	for rows.Next() {
		var userID int64
		var n user.PhoneNumber
		var numberType string
		if err := rows.Scan(&userID, &n.CountryCode, &numberType, &n.CallNumber); err != nil {
			return nil, fmt.Errorf("scan phone number: %w", err)
		}
		n.Type = user.PhoneNumberType(numberType)
		numbers[userID] = append(numbers[userID], n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phone numbers: %w", err)
	}
	return numbers, nil
}
