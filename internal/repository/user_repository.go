package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/crew-booking/internal/model"
)

// UserRepo persists accounts in the 'users' table.  It backs both the
// identity provider (register, login) and the booking core, which reads
// people through GetPerson.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, name, email, password_hash, user_type, role_category,
	contact, emergency_contact, created_at, updated_at`

// CreateUser inserts p and fills its ID and timestamps.  The email is
// normalised to lower case; a second account with the same email returns
// ErrEmailExists.
func (r *UserRepo) CreateUser(ctx context.Context, p *model.Person) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, user_type, role_category, contact, emergency_contact)
		 VALUES (?,?,?,?,?,?,?)`,
		p.Name, p.Email, p.PasswordHash, p.UserType, nullRole(p.RoleCategory), p.Contact, p.EmergencyContact)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetPerson(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// GetByEmail fetches a user by normalised email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.Person, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanPerson(row)
}

// GetPerson fetches a user by id.
func (r *UserRepo) GetPerson(ctx context.Context, id uint64) (*model.Person, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanPerson(row)
}

func scanPerson(row *sql.Row) (*model.Person, error) {
	var (
		p    model.Person
		role sql.NullString
		emer sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.UserType, &role,
		&p.Contact, &emer, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.RoleCategory = model.RoleCategory(role.String)
	p.EmergencyContact = nullableString(emer)
	return &p, nil
}

// nullRole stores the empty category of coordinators as NULL.
func nullRole(r model.RoleCategory) any {
	if r == model.RoleNone {
		return nil
	}
	return string(r)
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
