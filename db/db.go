package db

import (
	"database/sql"
	"errors"
	"linechat/models"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

var ErrUserExists = errors.New("user already exists")

type DB struct {
	conn *sql.DB
}

func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS offline_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender TEXT NOT NULL,
			recipient TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_offline_recipient ON offline_messages(recipient, id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// Credential gateway

// RegisterUser creates an account with a bcrypt-hashed password.
// Returns ErrUserExists when the username is already taken.
func (db *DB) RegisterUser(username, password string) error {
	exists, err := db.UserExists(username)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		"INSERT INTO users (username, password) VALUES (?, ?)",
		username, string(hashed),
	)
	return err
}

func (db *DB) AuthenticateUser(username, password string) (bool, error) {
	var hashedPassword string
	err := db.conn.QueryRow("SELECT password FROM users WHERE username = ?", username).Scan(&hashedPassword)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil, nil
}

func (db *DB) UserExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Offline mailbox

// EnqueueOffline stores a private message for a recipient with no live
// session. Insertion order is the delivery order.
func (db *DB) EnqueueOffline(sender, recipient, body string) error {
	_, err := db.conn.Exec(
		"INSERT INTO offline_messages (sender, recipient, body, created_at) VALUES (?, ?, ?, ?)",
		sender, recipient, body, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// DrainOffline returns every stored message for the recipient in FIFO
// order and deletes them in the same transaction, so each message is
// handed out exactly once.
func (db *DB) DrainOffline(recipient string) ([]models.StoredMessage, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		"SELECT id, sender, recipient, body, created_at FROM offline_messages WHERE recipient = ? ORDER BY id ASC",
		recipient,
	)
	if err != nil {
		return nil, err
	}

	var messages []models.StoredMessage
	for rows.Next() {
		var m models.StoredMessage
		var createdStr string
		if err := rows.Scan(&m.ID, &m.Sender, &m.Recipient, &m.Body, &createdStr); err != nil {
			rows.Close()
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := tx.Exec("DELETE FROM offline_messages WHERE recipient = ?", recipient); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return messages, nil
}

// PendingCount reports how many stored messages await a recipient.
func (db *DB) PendingCount(recipient string) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM offline_messages WHERE recipient = ?", recipient).Scan(&count)
	return count, err
}
