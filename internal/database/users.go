package database

import (
	"database/sql"
	"errors"
	"strings"

	"sonata/pkg/models"
)

// ErrEmailTaken is returned when registering with an email that already exists.
var ErrEmailTaken = errors.New("email already registered")

// CreateUser inserts a new user row and returns it with the assigned ID.
func (db *Database) CreateUser(name, email, passwordHash, role string) (models.User, error) {
	result, err := db.conn.Exec(`
		INSERT INTO users (name, email, password_hash, role)
		VALUES (?, ?, ?, ?)`, name, email, passwordHash, role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.User{}, ErrEmailTaken
		}
		db.logger.WithError(err).WithField("email", email).Error("Failed to create user")
		return models.User{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.User{}, err
	}

	return db.GetUserByID(int(id))
}

// GetUserByID returns a user row or ErrNotFound.
func (db *Database) GetUserByID(id int) (models.User, error) {
	var u models.User
	err := db.conn.QueryRow(`
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetUserByEmail returns a user row matched by email or ErrNotFound.
func (db *Database) GetUserByEmail(email string) (models.User, error) {
	var u models.User
	err := db.conn.QueryRow(`
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// CountUsers returns the number of registered users. The first registered
// account is promoted to admin.
func (db *Database) CountUsers() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
